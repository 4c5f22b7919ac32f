// Package handler contains HTTP handlers for the Adeia application.
//
// This file implements the authentication endpoints: registration, login,
// logout, email verification, and password reset.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/adeia-app/adeia/internal/auth"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/email"
	"github.com/adeia-app/adeia/internal/service"
	"github.com/adeia-app/adeia/internal/session"
	"github.com/google/uuid"
)

// AuthHandler handles authentication-related HTTP requests.
//
// Routes handled:
//   - POST /api/auth/register
//   - POST /api/auth/login
//   - POST /api/auth/logout
//   - GET  /api/auth/me
//   - POST /api/auth/verify-email
//   - POST /api/auth/resend-verification
//   - POST /api/auth/forgot-password
//   - POST /api/auth/reset-password
type AuthHandler struct {
	userService  service.UserService
	emailService email.EmailService
	logger       *slog.Logger
	isSecure     bool
}

// NewAuthHandler creates a new AuthHandler with the required dependencies.
// isSecure enables the Secure cookie flag and should be true in production.
func NewAuthHandler(
	userService service.UserService,
	emailService email.EmailService,
	logger *slog.Logger,
	isSecure bool,
) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		emailService: emailService,
		logger:       logger,
		isSecure:     isSecure,
	}
}

// RouteLimits carries per-endpoint rate limit middleware for the public
// auth routes. A nil field disables limiting for that endpoint.
type RouteLimits struct {
	Login         func(http.Handler) http.Handler
	Register      func(http.Handler) http.Handler
	PasswordReset func(http.Handler) http.Handler
}

func limit(mw func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	if mw == nil {
		return h
	}
	return mw(h)
}

// RegisterRoutes registers the auth routes. requireUser wraps the routes
// that need an authenticated session; limits throttles the credential and
// token endpoints per client IP.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler, limits RouteLimits) {
	mux.Handle("POST /api/auth/register", limit(limits.Register, h.Register))
	mux.Handle("POST /api/auth/login", limit(limits.Login, h.Login))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.Handle("GET /api/auth/me", requireUser(http.HandlerFunc(h.Me)))
	mux.HandleFunc("POST /api/auth/verify-email", h.VerifyEmail)
	mux.Handle("POST /api/auth/resend-verification", limit(limits.PasswordReset, h.ResendVerification))
	mux.Handle("POST /api/auth/forgot-password", limit(limits.PasswordReset, h.ForgotPassword))
	mux.Handle("POST /api/auth/reset-password", limit(limits.PasswordReset, h.ResetPassword))
}

// =============================================================================
// Response Shapes
// =============================================================================

// UserResponse is the public JSON representation of a user.
// The password hash and Stripe identifiers never appear here.
type UserResponse struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	CompanyName    string    `json:"company_name,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	RegistryNumber string    `json:"registry_number,omitempty"`
	Plan           string    `json:"plan"`
	EmailVerified  bool      `json:"email_verified"`
	CreatedAt      time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		CompanyName:    u.CompanyName,
		Phone:          u.Phone,
		RegistryNumber: u.RegistryNumber,
		Plan:           string(u.Plan),
		EmailVerified:  u.EmailVerified,
		CreatedAt:      u.CreatedAt,
	}
}

// =============================================================================
// POST /api/auth/register
// =============================================================================

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account on the free plan and starts a session.
// A verification email is sent asynchronously.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	verr := &domain.ValidationError{Op: "auth.register", Fields: map[string]string{}}
	if req.Name == "" {
		verr.Fields["name"] = "Name is required"
	}
	if req.Email == "" {
		verr.Fields["email"] = "Email is required"
	} else if !isValidEmail(req.Email) {
		verr.Fields["email"] = "Please enter a valid email address"
	}
	if len(req.Password) < 8 {
		verr.Fields["password"] = "Password must be at least 8 characters"
	}
	if len(verr.Fields) > 0 {
		ValidationErrorResponse(w, r, h.logger, verr)
		return
	}

	user, err := h.userService.Register(r.Context(), domain.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	go h.sendVerificationEmail(user.ID, user.Email, user.Name)

	// Log the user in so the client has a session immediately. If this
	// fails the account still exists; the client falls back to /login.
	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Error("auto-login after registration failed", "error", err, "user_id", user.ID)
		writeJSON(w, http.StatusCreated, map[string]interface{}{"user": toUserResponse(user)})
		return
	}

	session.SetCookie(w, result.Token, h.isSecure)
	h.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": toUserResponse(result.User)})
}

// =============================================================================
// POST /api/auth/login
// =============================================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and sets the session cookie.
// Invalid credentials always produce the same 401 regardless of whether
// the email exists.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("auth.login", "Email and password are required"))
		return
	}

	result, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if domain.ErrorCode(err) == domain.EUNAUTHORIZED {
			ErrorResponse(w, r, h.logger, domain.Unauthorized("auth.login", "Invalid email or password"))
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session.SetCookie(w, result.Token, h.isSecure)
	h.logger.Info("user logged in", "user_id", result.User.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": toUserResponse(result.User)})
}

// =============================================================================
// POST /api/auth/logout
// =============================================================================

// Logout invalidates the session and clears the cookie. Idempotent: a
// request without a session still gets 204.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.userService.Logout(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to invalidate session", "error", err)
		}
	}

	session.ClearCookie(w, h.isSecure)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GET /api/auth/me
// =============================================================================

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": toUserResponse(user)})
}

// =============================================================================
// POST /api/auth/verify-email
// =============================================================================

type tokenRequest struct {
	Token string `json:"token"`
}

// VerifyEmail validates an email verification token. Verifying an already
// verified address responds 200 so stale links stay harmless.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.Token == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("auth.verify_email", "Verification token is required"))
		return
	}

	if err := h.userService.VerifyEmail(r.Context(), req.Token); err != nil {
		if domain.ErrorCode(err) == domain.ECONFLICT {
			writeJSON(w, http.StatusOK, map[string]string{"status": "already_verified"})
			return
		}
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// =============================================================================
// POST /api/auth/resend-verification
// =============================================================================

type emailRequest struct {
	Email string `json:"email"`
}

// ResendVerification requests a new verification email. The response is
// identical whether or not the address exists, to prevent enumeration.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if emailAddr == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("auth.resend_verification", "Email is required"))
		return
	}

	result, err := h.userService.ResendVerificationEmail(r.Context(), emailAddr)
	if err != nil {
		h.logger.Debug("resend verification failed", "error", err, "email", emailAddr)
	} else if user, err := h.userService.GetByID(r.Context(), result.UserID); err == nil {
		go h.sendEmailAsync(func(ctx context.Context) error {
			return h.emailService.SendVerificationEmail(ctx, emailAddr, user.Name, result.Token)
		}, "verification", emailAddr)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// =============================================================================
// POST /api/auth/forgot-password
// =============================================================================

// ForgotPassword requests a password reset email. Same anti-enumeration
// behavior as ResendVerification.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if emailAddr == "" || !isValidEmail(emailAddr) {
		ErrorResponse(w, r, h.logger, domain.Invalid("auth.forgot_password", "A valid email is required"))
		return
	}

	result, err := h.userService.CreatePasswordResetToken(r.Context(), emailAddr)
	if err != nil {
		h.logger.Debug("password reset token creation failed", "error", err, "email", emailAddr)
	} else if user, err := h.userService.GetByID(r.Context(), result.UserID); err == nil {
		go h.sendEmailAsync(func(ctx context.Context) error {
			return h.emailService.SendPasswordResetEmail(ctx, emailAddr, user.Name, result.Token)
		}, "password reset", emailAddr)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// =============================================================================
// POST /api/auth/reset-password
// =============================================================================

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword validates the token and sets a new password. All existing
// sessions for the user are invalidated by the service.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if req.Token == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("auth.reset_password", "Reset token is required"))
		return
	}
	if len(req.Password) < 8 {
		ErrorResponse(w, r, h.logger, domain.Invalid("auth.reset_password", "Password must be at least 8 characters"))
		return
	}

	err := h.userService.ResetPassword(r.Context(), domain.ResetPasswordParams{
		Token:       req.Token,
		NewPassword: req.Password,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("password reset completed")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// Email Helpers
// =============================================================================

// sendVerificationEmail creates a verification token and sends the email.
// Runs in a goroutine; failures are logged, never surfaced to the client.
func (h *AuthHandler) sendVerificationEmail(userID uuid.UUID, emailAddr, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := h.userService.CreateEmailVerificationToken(ctx, userID)
	if err != nil {
		h.logger.Error("failed to create verification token", "error", err, "user_id", userID)
		return
	}

	if err := h.emailService.SendVerificationEmail(ctx, emailAddr, name, result.Token); err != nil {
		h.logger.Error("failed to send verification email", "error", err, "user_id", userID)
		return
	}

	h.logger.Info("verification email sent", "user_id", userID)
}

// sendEmailAsync runs one email send with its own timeout context.
func (h *AuthHandler) sendEmailAsync(send func(context.Context) error, kind, emailAddr string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := send(ctx); err != nil {
		h.logger.Error("failed to send email", "error", err, "kind", kind, "email", emailAddr)
		return
	}
	h.logger.Info("email sent", "kind", kind, "email", emailAddr)
}

// =============================================================================
// Validation Helpers
// =============================================================================

// isValidEmail performs basic email format validation. The user service
// performs the thorough check; this just catches obvious typos early.
func isValidEmail(email string) bool {
	atIndex := strings.Index(email, "@")
	if atIndex < 1 || atIndex >= len(email)-1 {
		return false
	}
	return strings.Contains(email[atIndex+1:], ".")
}
