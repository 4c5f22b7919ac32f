// Package service contains the business logic layer.
//
// Services orchestrate interactions between repositories, external APIs,
// and domain logic. They are responsible for:
// - Input validation
// - Business rule enforcement
// - Transaction coordination
// - Error translation (database errors -> domain errors)
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// Configuration Constants
// =============================================================================

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	// Cost 12 provides good security (~250ms on modern hardware) while being
	// fast enough for login flows. NIST recommends cost 10+.
	//
	// SECURITY NOTE: This should NOT be configurable at runtime to prevent
	// accidental weakening. If you need to change it, do so here and redeploy.
	BcryptCost = 12

	// SessionTokenBytes is the number of random bytes for session tokens.
	// 32 bytes = 256 bits of entropy, sufficient for cryptographic security.
	// The token is then hex-encoded to 64 characters for storage/transmission.
	SessionTokenBytes = 32

	// SessionDuration is how long a session remains valid.
	// 7 days balances security with user convenience for a B2B application.
	SessionDuration = 7 * 24 * time.Hour

	// MinPasswordLength is the minimum password length.
	// NIST SP 800-63B recommends 8+ characters minimum.
	MinPasswordLength = 8

	// MaxPasswordLength prevents DoS via bcrypt on very long passwords.
	// bcrypt has a 72-byte limit anyway, but we cap earlier for clarity.
	MaxPasswordLength = 72
)

// =============================================================================
// Interface Definition
// =============================================================================

// UserService defines the interface for user-related operations.
//
// This interface enables:
// - Mocking in unit tests
// - Potential future implementations (e.g., with caching)
// - Clear contract definition for handlers
type UserService interface {
	// Register creates a new user account on the free plan.
	// Returns domain.ECONFLICT if email already exists.
	// Returns domain.EINVALID for validation errors.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and creates a new session.
	// Returns the user and raw session token on success.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// Logout invalidates a session by its raw token.
	// This is idempotent - calling with an invalid token is not an error.
	Logout(ctx context.Context, token string) error

	// GetByID retrieves a user by their ID.
	// Returns domain.ENOTFOUND if user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetBySessionToken retrieves a user by their session token.
	// This validates the session and returns the associated user.
	// Returns domain.EUNAUTHORIZED if token is invalid or expired.
	GetBySessionToken(ctx context.Context, token string) (*domain.User, error)

	// UpdateProfile updates a user's profile information.
	// Returns domain.ENOTFOUND if user does not exist.
	UpdateProfile(ctx context.Context, params domain.ProfileUpdateParams) error

	// ChangePassword changes a user's password.
	// Validates the current password before allowing the change.
	// Invalidates all existing sessions after password change.
	// Returns domain.EUNAUTHORIZED if current password is wrong.
	ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error

	// DeleteExpiredSessions removes all expired sessions from the database.
	// This should be called periodically (e.g., daily) to clean up.
	DeleteExpiredSessions(ctx context.Context) error

	// =========================================================================
	// Email Verification Methods
	// =========================================================================

	// CreateEmailVerificationToken creates a new email verification token for a user.
	// Returns the raw token (to send in email) and expiration time.
	// Deletes any existing tokens for the user before creating a new one.
	CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (*domain.EmailVerificationResult, error)

	// VerifyEmail validates an email verification token and marks the user as verified.
	// Returns domain.ENOTFOUND if token is invalid or expired.
	// Returns domain.ECONFLICT if user is already verified.
	VerifyEmail(ctx context.Context, token string) error

	// ResendVerificationEmail creates a new verification token for an unverified user.
	// Returns domain.ENOTFOUND if user does not exist.
	// Returns domain.ECONFLICT if user is already verified.
	ResendVerificationEmail(ctx context.Context, email string) (*domain.EmailVerificationResult, error)

	// DeleteExpiredEmailVerificationTokens removes all expired email verification tokens.
	DeleteExpiredEmailVerificationTokens(ctx context.Context) error

	// =========================================================================
	// Password Reset Methods
	// =========================================================================

	// CreatePasswordResetToken creates a new password reset token for a user.
	// Returns domain.ENOTFOUND if email does not exist (for security, caller
	// should NOT expose this to end user - always show "if email exists..." message).
	CreatePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetResult, error)

	// ValidatePasswordResetToken checks if a password reset token is valid.
	// Returns the associated user ID if valid.
	// Returns domain.ENOTFOUND if token is invalid, expired, or already used.
	ValidatePasswordResetToken(ctx context.Context, token string) (uuid.UUID, error)

	// ResetPassword validates the token and updates the user's password.
	// On success: updates password, marks token as used, invalidates all sessions.
	ResetPassword(ctx context.Context, params domain.ResetPasswordParams) error

	// DeleteExpiredPasswordResetTokens removes all expired password reset tokens.
	DeleteExpiredPasswordResetTokens(ctx context.Context) error

	// =========================================================================
	// Billing Methods
	// =========================================================================

	// UpdateStripeCustomer saves the Stripe customer ID for a user.
	UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error

	// UpdateSubscription updates a user's subscription status and ID.
	// Plan tier transitions go through QuotaService.SetPlan so the usage
	// counter semantics stay in one place.
	UpdateSubscription(ctx context.Context, userID uuid.UUID, status, subscriptionID string) error

	// GetByStripeCustomerID retrieves a user by their Stripe customer ID.
	// Returns domain.ENOTFOUND if no user has that customer ID.
	GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error)
}

// =============================================================================
// Implementation
// =============================================================================

// userService is the concrete implementation of UserService.
type userService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewUserService creates a new UserService instance.
func NewUserService(queries *repository.Queries, logger *slog.Logger) UserService {
	return &userService{
		queries: queries,
		logger:  logger,
	}
}

// =============================================================================
// Register Implementation
// =============================================================================

// Register creates a new user account with the provided parameters.
//
// Flow:
// 1. Validate input parameters (email format, password strength)
// 2. Check if email already exists
// 3. Hash the password with bcrypt
// 4. Create the user record on the free plan
// 5. Return the created user (without password hash in response)
//
// Security Considerations:
// - Password is hashed with bcrypt cost 12
// - Timing attacks are mitigated by always hashing even on duplicate email
// - The raw password is never logged or stored
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "UserService.Register"

	// Validate and normalize input
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.Name = strings.TrimSpace(params.Name)
	params.CompanyName = strings.TrimSpace(params.CompanyName)
	params.Phone = strings.TrimSpace(params.Phone)
	params.RegistryNumber = strings.TrimSpace(params.RegistryNumber)

	if err := validateEmail(params.Email); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid email address")
	}

	if params.Name == "" {
		return nil, domain.Invalid(op, "Name is required")
	}

	if err := validatePassword(params.Password); err != nil {
		return nil, domain.Wrap(err, domain.EINVALID, op, "Invalid password")
	}

	// Check if email already exists
	_, err := s.queries.GetUserByEmail(ctx, params.Email)
	if err == nil {
		// User exists - to prevent timing attacks, we hash the password anyway
		_, _ = bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
		return nil, domain.Conflict(op, "Email already registered")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.Internal(err, op, "Failed to check email availability")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	// Every account starts on the free plan; the usage counter starts at
	// zero anchored at creation time (column defaults).
	repoUser, err := s.queries.CreateUser(ctx, repository.CreateUserParams{
		Email:          params.Email,
		PasswordHash:   string(passwordHash),
		Name:           params.Name,
		CompanyName:    domain.ToNullString(params.CompanyName),
		Phone:          domain.ToNullString(params.Phone),
		RegistryNumber: domain.ToNullString(params.RegistryNumber),
		Plan:           string(domain.PlanTierFree),
	})
	if err != nil {
		// Check for unique constraint violation (race condition)
		if strings.Contains(err.Error(), "unique") || strings.Contains(err.Error(), "duplicate") {
			return nil, domain.Conflict(op, "Email already registered")
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)

	return user, nil
}

// =============================================================================
// Login Implementation
// =============================================================================

// Login authenticates a user and creates a new session.
//
// Security Considerations:
// - Constant-time password comparison via bcrypt
// - Generic error message prevents email enumeration
// - Session token is only returned once (not stored anywhere in plaintext)
// - Token is hashed before storage (if DB is compromised, tokens are useless)
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "UserService.Login"

	email = strings.ToLower(strings.TrimSpace(email))

	repoUser, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		// If user not found, still do a bcrypt comparison to prevent timing attacks
		if errors.Is(err, sql.ErrNoRows) {
			// Use a dummy hash to maintain constant time
			dummyHash := "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW" // bcrypt hash of "dummy"
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	err = bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(password))
	if err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	token, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate session token")
	}

	tokenHash := hashSessionToken(token)
	expiresAt := time.Now().Add(SessionDuration)

	_, err = s.queries.CreateSession(ctx, repository.CreateSessionParams{
		UserID:    repoUser.ID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create session")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)

	// Return result with user and RAW token (not hash)
	return &domain.LoginResult{
		User:  user,
		Token: token,
	}, nil
}

// =============================================================================
// Logout Implementation
// =============================================================================

// Logout invalidates a session. This operation is idempotent - calling
// with an invalid or already-deleted token simply does nothing.
func (s *userService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil // Idempotent - empty token is fine
	}
	if len(token) != 64 {
		return nil // Invalid token, but logout is idempotent
	}

	tokenHash := hashSessionToken(token)

	err := s.queries.DeleteSession(ctx, tokenHash)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to delete session", "error", err)
		}
	}

	s.logger.Debug("session invalidated")
	return nil
}

// =============================================================================
// GetByID Implementation
// =============================================================================

// GetByID retrieves a user by their ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "UserService.GetByID"

	repoUser, err := s.queries.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	return user, nil
}

// =============================================================================
// GetBySessionToken Implementation
// =============================================================================

// GetBySessionToken retrieves a user by their session token.
//
// Security Considerations:
// - Token is hashed before database lookup
// - Expired sessions are rejected at database level
func (s *userService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	const op = "UserService.GetBySessionToken"

	if token == "" || len(token) != 64 {
		return nil, domain.Unauthorized(op, "Invalid or expired session")
	}

	tokenHash := hashSessionToken(token)

	// Query already filters expired sessions
	session, err := s.queries.GetSessionByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve session")
	}

	repoUser, err := s.queries.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Unlikely but possible if user was deleted
			return nil, domain.Unauthorized(op, "Invalid or expired session")
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""

	return user, nil
}

// =============================================================================
// UpdateProfile Implementation
// =============================================================================

// UpdateProfile updates a user's profile information.
func (s *userService) UpdateProfile(ctx context.Context, params domain.ProfileUpdateParams) error {
	const op = "UserService.UpdateProfile"

	params.Name = strings.TrimSpace(params.Name)
	params.CompanyName = strings.TrimSpace(params.CompanyName)
	params.Phone = strings.TrimSpace(params.Phone)
	params.RegistryNumber = strings.TrimSpace(params.RegistryNumber)

	if params.Name == "" {
		return domain.Invalid(op, "Name is required")
	}

	// Verify user exists
	_, err := s.queries.GetUserByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", params.UserID.String())
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}

	err = s.queries.UpdateUserProfile(ctx, repository.UpdateUserProfileParams{
		ID:             params.UserID,
		Name:           params.Name,
		CompanyName:    domain.ToNullString(params.CompanyName),
		Phone:          domain.ToNullString(params.Phone),
		RegistryNumber: domain.ToNullString(params.RegistryNumber),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update profile")
	}

	s.logger.Info("user profile updated", "user_id", params.UserID)
	return nil
}

// =============================================================================
// ChangePassword Implementation
// =============================================================================

// ChangePassword changes a user's password.
//
// Security Considerations:
// - Current password must be verified to prevent session hijacking attacks
// - All sessions are invalidated to force re-authentication
func (s *userService) ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error {
	const op = "UserService.ChangePassword"

	if err := validatePassword(params.NewPassword); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, "Invalid new password")
	}

	repoUser, err := s.queries.GetUserByID(ctx, params.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", params.UserID.String())
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}

	err = bcrypt.CompareHashAndPassword([]byte(repoUser.PasswordHash), []byte(params.CurrentPassword))
	if err != nil {
		return domain.Unauthorized(op, "Current password is incorrect")
	}

	newPasswordHash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash new password")
	}

	err = s.queries.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
		ID:           params.UserID,
		PasswordHash: string(newPasswordHash),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	// Invalidate all user sessions (force re-authentication)
	err = s.queries.DeleteUserSessions(ctx, params.UserID)
	if err != nil {
		// Log but don't fail - password was changed successfully
		s.logger.Warn("failed to delete user sessions after password change", "user_id", params.UserID, "error", err)
	}

	s.logger.Info("user password changed", "user_id", params.UserID)
	return nil
}

// =============================================================================
// DeleteExpiredSessions Implementation
// =============================================================================

// DeleteExpiredSessions removes all expired sessions.
// This should be called periodically as a maintenance task.
func (s *userService) DeleteExpiredSessions(ctx context.Context) error {
	const op = "UserService.DeleteExpiredSessions"

	count, err := s.queries.DeleteExpiredSessions(ctx)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete expired sessions")
	}

	s.logger.Info("expired sessions cleaned up", "count", count)
	return nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// generateSessionToken creates a cryptographically secure session token.
//
// The token is generated using crypto/rand and returned as a hex-encoded
// string, providing 256 bits of entropy.
func generateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// hashSessionToken creates a SHA-256 hash of a session token.
//
// We hash session tokens before storing them because:
//  1. If the database is compromised, attackers cannot use the hashes directly
//  2. SHA-256 is fast enough for per-request validation
//  3. Unlike passwords, session tokens are high-entropy random values,
//     so SHA-256 is sufficient (bcrypt would be overkill and slow)
func hashSessionToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// repoUserToDomain converts a repository.User to domain.User.
//
// This handles the conversion from database types (sql.Null*) to Go types,
// making the domain model easier to work with in business logic.
func repoUserToDomain(u repository.User) *domain.User {
	var emailVerifiedAt *time.Time
	if u.EmailVerifiedAt.Valid {
		emailVerifiedAt = &u.EmailVerifiedAt.Time
	}

	return &domain.User{
		ID:                 u.ID,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		Name:               u.Name,
		CompanyName:        domain.NullStringValue(u.CompanyName),
		Phone:              domain.NullStringValue(u.Phone),
		RegistryNumber:     domain.NullStringValue(u.RegistryNumber),
		StripeCustomerID:   domain.NullStringValue(u.StripeCustomerID),
		SubscriptionStatus: domain.SubscriptionStatus(u.SubscriptionStatus),
		SubscriptionID:     domain.NullStringValue(u.SubscriptionID),
		Plan:               domain.PlanTier(u.Plan),
		UsesThisMonth:      int(u.UsesThisMonth),
		LastResetAt:        u.LastResetAt,
		EmailVerified:      u.EmailVerified,
		EmailVerifiedAt:    emailVerifiedAt,
		IsAdmin:            u.IsAdmin,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

// validateEmail validates an email address format.
//
// Checks:
// - Basic format validation (contains @, has domain)
// - Length limits (RFC 5321: 254 chars max)
func validateEmail(email string) error {
	if email == "" {
		return domain.Invalid("", "Email is required")
	}

	if len(email) > 254 {
		return domain.Invalid("", "Email must be 254 characters or less")
	}

	atIndex := strings.Index(email, "@")
	if atIndex != strings.LastIndex(email, "@") {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}
	if atIndex <= 0 {
		return domain.Invalid("", "Email must contain exactly one @ symbol")
	}
	if atIndex == len(email)-1 {
		return domain.Invalid("", "Email cannot end with @")
	}

	if !strings.Contains(email[atIndex+1:], ".") {
		return domain.Invalid("", "Email domain must contain a dot")
	}

	if strings.Contains(email, "..") {
		return domain.Invalid("", "Email cannot contain consecutive dots")
	}

	return nil
}

// validatePassword validates password strength requirements.
//
// Rules:
// - Minimum length: 8 characters (NIST SP 800-63B)
// - Maximum length: 72 characters (bcrypt limit)
func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return domain.Invalid("", "Password must be at least 8 characters")
	}

	if len(password) > MaxPasswordLength {
		return domain.Invalid("", "Password must be 72 characters or less")
	}

	return nil
}

// =============================================================================
// Email Verification Token Implementation
// =============================================================================

// CreateEmailVerificationToken creates a new email verification token for a user.
//
// Security Considerations:
// - Raw token is returned only once (not stored anywhere in plaintext)
// - Token is hashed before storage using same pattern as session tokens
// - Caller is responsible for sending the raw token via email
func (s *userService) CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (*domain.EmailVerificationResult, error) {
	const op = "UserService.CreateEmailVerificationToken"

	_, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	// Enforce one-token-per-user
	err = s.queries.DeleteUserEmailVerificationTokens(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to delete existing tokens")
	}

	rawToken, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate token")
	}

	tokenHash := hashSessionToken(rawToken)
	expiresAt := time.Now().Add(domain.EmailVerificationTokenDuration)

	_, err = s.queries.CreateEmailVerificationToken(ctx, repository.CreateEmailVerificationTokenParams{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create verification token")
	}

	s.logger.Info("email verification token created", "user_id", userID)

	return &domain.EmailVerificationResult{
		Token:     rawToken,
		ExpiresAt: expiresAt,
		UserID:    userID,
	}, nil
}

// VerifyEmail validates an email verification token and marks the user as verified.
//
// Security Considerations:
// - Token lookup is by hash, not raw token
// - Expired tokens are filtered at query level
// - Token is deleted after use (one-time use)
func (s *userService) VerifyEmail(ctx context.Context, token string) error {
	const op = "UserService.VerifyEmail"

	if len(token) != 64 {
		return domain.Invalid(op, "Invalid verification token")
	}

	tokenHash := hashSessionToken(token)

	verificationToken, err := s.queries.GetEmailVerificationTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "verification token", "")
		}
		return domain.Internal(err, op, "Failed to retrieve verification token")
	}

	user, err := s.queries.GetUserByID(ctx, verificationToken.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "user", verificationToken.UserID.String())
		}
		return domain.Internal(err, op, "Failed to retrieve user")
	}

	if user.EmailVerified {
		return domain.Conflict(op, "Email is already verified")
	}

	err = s.queries.UpdateUserEmailVerification(ctx, user.ID)
	if err != nil {
		return domain.Internal(err, op, "Failed to mark email as verified")
	}

	err = s.queries.DeleteEmailVerificationToken(ctx, tokenHash)
	if err != nil {
		// Log but don't fail - verification already succeeded
		s.logger.Warn("failed to delete verification token after use", "error", err, "user_id", user.ID)
	}

	s.logger.Info("email verified", "user_id", user.ID, "email", user.Email)
	return nil
}

// ResendVerificationEmail creates a new verification token for an unverified user.
func (s *userService) ResendVerificationEmail(ctx context.Context, email string) (*domain.EmailVerificationResult, error) {
	const op = "UserService.ResendVerificationEmail"

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", email)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	if user.EmailVerified {
		return nil, domain.Conflict(op, "Email is already verified")
	}

	return s.CreateEmailVerificationToken(ctx, user.ID)
}

// DeleteExpiredEmailVerificationTokens removes all expired email verification tokens.
func (s *userService) DeleteExpiredEmailVerificationTokens(ctx context.Context) error {
	const op = "UserService.DeleteExpiredEmailVerificationTokens"

	err := s.queries.DeleteExpiredEmailVerificationTokens(ctx)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete expired tokens")
	}

	s.logger.Info("expired email verification tokens cleaned up")
	return nil
}

// =============================================================================
// Password Reset Token Implementation
// =============================================================================

// CreatePasswordResetToken creates a new password reset token for a user.
//
// Security Considerations:
//   - Returns NotFound if email doesn't exist, but caller should NOT expose this
//     to end user (always show "if account exists, we sent an email" message)
//   - Shorter expiration than email verification (1 hour vs 24 hours)
//   - Old tokens are deleted before creating new one
func (s *userService) CreatePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetResult, error) {
	const op = "UserService.CreatePasswordResetToken"

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", email)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	err = s.queries.DeleteUserPasswordResetTokens(ctx, user.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to delete existing tokens")
	}

	rawToken, err := generateSessionToken()
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to generate token")
	}

	tokenHash := hashSessionToken(rawToken)
	expiresAt := time.Now().Add(domain.PasswordResetTokenDuration)

	_, err = s.queries.CreatePasswordResetToken(ctx, repository.CreatePasswordResetTokenParams{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create password reset token")
	}

	s.logger.Info("password reset token created", "user_id", user.ID, "email", user.Email)

	return &domain.PasswordResetResult{
		Token:     rawToken,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
	}, nil
}

// ValidatePasswordResetToken checks if a password reset token is valid.
//
// The query filters both expired AND used tokens. Does not mark the token
// as used; that happens in ResetPassword.
func (s *userService) ValidatePasswordResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	const op = "UserService.ValidatePasswordResetToken"

	if len(token) != 64 {
		return uuid.Nil, domain.Invalid(op, "Invalid reset token")
	}

	tokenHash := hashSessionToken(token)

	resetToken, err := s.queries.GetPasswordResetTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.NotFound(op, "reset token", "")
		}
		return uuid.Nil, domain.Internal(err, op, "Failed to retrieve reset token")
	}

	return resetToken.UserID, nil
}

// ResetPassword validates the token and updates the user's password.
//
// Security Considerations:
// - Token is validated again (race condition protection)
// - Token is marked used, not deleted (audit trail)
// - All sessions are invalidated (force re-authentication)
func (s *userService) ResetPassword(ctx context.Context, params domain.ResetPasswordParams) error {
	const op = "UserService.ResetPassword"

	if len(params.Token) != 64 {
		return domain.Invalid(op, "Invalid reset token")
	}

	if err := validatePassword(params.NewPassword); err != nil {
		return domain.Wrap(err, domain.EINVALID, op, "Invalid new password")
	}

	tokenHash := hashSessionToken(params.Token)

	resetToken, err := s.queries.GetPasswordResetTokenByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "reset token", "")
		}
		return domain.Internal(err, op, "Failed to retrieve reset token")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.NewPassword), BcryptCost)
	if err != nil {
		return domain.Internal(err, op, "Failed to hash new password")
	}

	err = s.queries.UpdateUserPassword(ctx, repository.UpdateUserPasswordParams{
		ID:           resetToken.UserID,
		PasswordHash: string(passwordHash),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update password")
	}

	err = s.queries.MarkPasswordResetTokenUsed(ctx, tokenHash)
	if err != nil {
		// Log but don't fail - password was already changed
		s.logger.Warn("failed to mark reset token as used", "error", err, "user_id", resetToken.UserID)
	}

	err = s.queries.DeleteUserSessions(ctx, resetToken.UserID)
	if err != nil {
		// Log but don't fail - password was changed successfully
		s.logger.Warn("failed to delete user sessions after password reset", "error", err, "user_id", resetToken.UserID)
	}

	s.logger.Info("password reset completed", "user_id", resetToken.UserID)
	return nil
}

// DeleteExpiredPasswordResetTokens removes all expired password reset tokens.
func (s *userService) DeleteExpiredPasswordResetTokens(ctx context.Context) error {
	const op = "UserService.DeleteExpiredPasswordResetTokens"

	err := s.queries.DeleteExpiredPasswordResetTokens(ctx)
	if err != nil {
		return domain.Internal(err, op, "Failed to delete expired tokens")
	}

	s.logger.Info("expired password reset tokens cleaned up")
	return nil
}

// =============================================================================
// Billing Methods Implementation
// =============================================================================

// UpdateStripeCustomer saves the Stripe customer ID for a user.
func (s *userService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error {
	const op = "UserService.UpdateStripeCustomer"

	err := s.queries.UpdateUserStripeCustomer(ctx, repository.UpdateUserStripeCustomerParams{
		ID:               userID,
		StripeCustomerID: domain.ToNullString(stripeCustomerID),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update Stripe customer ID")
	}

	s.logger.Info("stripe customer ID updated", "user_id", userID, "stripe_customer_id", stripeCustomerID)
	return nil
}

// UpdateSubscription updates a user's subscription status and subscription ID.
func (s *userService) UpdateSubscription(ctx context.Context, userID uuid.UUID, status, subscriptionID string) error {
	const op = "UserService.UpdateSubscription"

	err := s.queries.UpdateUserSubscription(ctx, repository.UpdateUserSubscriptionParams{
		ID:                 userID,
		SubscriptionStatus: status,
		SubscriptionID:     domain.ToNullString(subscriptionID),
	})
	if err != nil {
		return domain.Internal(err, op, "Failed to update subscription")
	}

	s.logger.Info("subscription updated", "user_id", userID, "status", status)
	return nil
}

// GetByStripeCustomerID retrieves a user by their Stripe customer ID.
func (s *userService) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error) {
	const op = "UserService.GetByStripeCustomerID"

	repoUser, err := s.queries.GetUserByStripeCustomerID(ctx, stripeCustomerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", stripeCustomerID)
		}
		return nil, domain.Internal(err, op, "Failed to retrieve user by Stripe customer ID")
	}

	user := repoUserToDomain(repoUser)
	user.PasswordHash = ""
	return user, nil
}

// =============================================================================
// Compile-time interface check
// =============================================================================

// Ensure userService implements UserService
var _ UserService = (*userService)(nil)
