package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/session"
	"github.com/google/uuid"
)

// =============================================================================
// Mock UserService Implementation
// =============================================================================

// mockUserService implements the service.UserService interface for testing.
// Each method delegates to an optional func field.
type mockUserService struct {
	RegisterFunc                             func(ctx context.Context, params domain.RegisterParams) (*domain.User, error)
	LoginFunc                                func(ctx context.Context, email, password string) (*domain.LoginResult, error)
	LogoutFunc                               func(ctx context.Context, token string) error
	GetByIDFunc                              func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetBySessionTokenFunc                    func(ctx context.Context, token string) (*domain.User, error)
	UpdateProfileFunc                        func(ctx context.Context, params domain.ProfileUpdateParams) error
	ChangePasswordFunc                       func(ctx context.Context, params domain.PasswordChangeParams) error
	DeleteExpiredSessionsFunc                func(ctx context.Context) error
	CreateEmailVerificationTokenFunc         func(ctx context.Context, userID uuid.UUID) (*domain.EmailVerificationResult, error)
	VerifyEmailFunc                          func(ctx context.Context, token string) error
	ResendVerificationEmailFunc              func(ctx context.Context, email string) (*domain.EmailVerificationResult, error)
	DeleteExpiredEmailVerificationTokensFunc func(ctx context.Context) error
	CreatePasswordResetTokenFunc             func(ctx context.Context, email string) (*domain.PasswordResetResult, error)
	ValidatePasswordResetTokenFunc           func(ctx context.Context, token string) (uuid.UUID, error)
	ResetPasswordFunc                        func(ctx context.Context, params domain.ResetPasswordParams) error
	DeleteExpiredPasswordResetTokensFunc     func(ctx context.Context) error
	UpdateStripeCustomerFunc                 func(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error
	UpdateSubscriptionFunc                   func(ctx context.Context, userID uuid.UUID, status, subscriptionID string) error
	GetByStripeCustomerIDFunc                func(ctx context.Context, stripeCustomerID string) (*domain.User, error)
}

func (m *mockUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, params)
	}
	return nil, errors.New("RegisterFunc not implemented")
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, errors.New("LoginFunc not implemented")
}

func (m *mockUserService) Logout(ctx context.Context, token string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, token)
	}
	return nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, errors.New("GetByIDFunc not implemented")
}

func (m *mockUserService) GetBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if m.GetBySessionTokenFunc != nil {
		return m.GetBySessionTokenFunc(ctx, token)
	}
	return nil, errors.New("GetBySessionTokenFunc not implemented")
}

func (m *mockUserService) UpdateProfile(ctx context.Context, params domain.ProfileUpdateParams) error {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, params)
	}
	return nil
}

func (m *mockUserService) ChangePassword(ctx context.Context, params domain.PasswordChangeParams) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, params)
	}
	return nil
}

func (m *mockUserService) DeleteExpiredSessions(ctx context.Context) error {
	if m.DeleteExpiredSessionsFunc != nil {
		return m.DeleteExpiredSessionsFunc(ctx)
	}
	return nil
}

func (m *mockUserService) CreateEmailVerificationToken(ctx context.Context, userID uuid.UUID) (*domain.EmailVerificationResult, error) {
	if m.CreateEmailVerificationTokenFunc != nil {
		return m.CreateEmailVerificationTokenFunc(ctx, userID)
	}
	return &domain.EmailVerificationResult{Token: "test-token"}, nil
}

func (m *mockUserService) VerifyEmail(ctx context.Context, token string) error {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, token)
	}
	return nil
}

func (m *mockUserService) ResendVerificationEmail(ctx context.Context, email string) (*domain.EmailVerificationResult, error) {
	if m.ResendVerificationEmailFunc != nil {
		return m.ResendVerificationEmailFunc(ctx, email)
	}
	return nil, errors.New("ResendVerificationEmailFunc not implemented")
}

func (m *mockUserService) DeleteExpiredEmailVerificationTokens(ctx context.Context) error {
	if m.DeleteExpiredEmailVerificationTokensFunc != nil {
		return m.DeleteExpiredEmailVerificationTokensFunc(ctx)
	}
	return nil
}

func (m *mockUserService) CreatePasswordResetToken(ctx context.Context, email string) (*domain.PasswordResetResult, error) {
	if m.CreatePasswordResetTokenFunc != nil {
		return m.CreatePasswordResetTokenFunc(ctx, email)
	}
	return nil, errors.New("CreatePasswordResetTokenFunc not implemented")
}

func (m *mockUserService) ValidatePasswordResetToken(ctx context.Context, token string) (uuid.UUID, error) {
	if m.ValidatePasswordResetTokenFunc != nil {
		return m.ValidatePasswordResetTokenFunc(ctx, token)
	}
	return uuid.Nil, errors.New("ValidatePasswordResetTokenFunc not implemented")
}

func (m *mockUserService) ResetPassword(ctx context.Context, params domain.ResetPasswordParams) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, params)
	}
	return nil
}

func (m *mockUserService) DeleteExpiredPasswordResetTokens(ctx context.Context) error {
	if m.DeleteExpiredPasswordResetTokensFunc != nil {
		return m.DeleteExpiredPasswordResetTokensFunc(ctx)
	}
	return nil
}

func (m *mockUserService) UpdateStripeCustomer(ctx context.Context, userID uuid.UUID, stripeCustomerID string) error {
	if m.UpdateStripeCustomerFunc != nil {
		return m.UpdateStripeCustomerFunc(ctx, userID, stripeCustomerID)
	}
	return nil
}

func (m *mockUserService) UpdateSubscription(ctx context.Context, userID uuid.UUID, status, subscriptionID string) error {
	if m.UpdateSubscriptionFunc != nil {
		return m.UpdateSubscriptionFunc(ctx, userID, status, subscriptionID)
	}
	return nil
}

func (m *mockUserService) GetByStripeCustomerID(ctx context.Context, stripeCustomerID string) (*domain.User, error) {
	if m.GetByStripeCustomerIDFunc != nil {
		return m.GetByStripeCustomerIDFunc(ctx, stripeCustomerID)
	}
	return nil, errors.New("GetByStripeCustomerIDFunc not implemented")
}

// =============================================================================
// Mock EmailService Implementation
// =============================================================================

type mockEmailService struct {
	VerificationSent  []string
	PasswordResetSent []string
}

func (m *mockEmailService) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	m.VerificationSent = append(m.VerificationSent, to)
	return nil
}

func (m *mockEmailService) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	m.PasswordResetSent = append(m.PasswordResetSent, to)
	return nil
}

func (m *mockEmailService) SendReportReadyEmail(ctx context.Context, to, name, reportURL string) error {
	return nil
}

func (m *mockEmailService) SendUsageThresholdEmail(ctx context.Context, to, name string, used, quota int, exhausted bool) error {
	return nil
}

// =============================================================================
// Test Helpers
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAuthHandler(users *mockUserService) *AuthHandler {
	return NewAuthHandler(users, &mockEmailService{}, testLogger(), false)
}

func testUser() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Email: "eleni@example.gr",
		Name:  "Ελένη Παπαδοπούλου",
		Plan:  domain.PlanTierFree,
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	return body
}

// =============================================================================
// Register Tests
// =============================================================================

func TestRegister_Success(t *testing.T) {
	user := testUser()
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			if params.Email != "eleni@example.gr" {
				t.Errorf("expected normalized email, got %q", params.Email)
			}
			return user, nil
		},
		LoginFunc: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			return &domain.LoginResult{User: user, Token: "session-token"}, nil
		},
	}
	h := newTestAuthHandler(users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Ελένη Παπαδοπούλου","email":"Eleni@Example.gr","password":"secret123"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var gotCookie bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.Value == "session-token" {
			gotCookie = true
			if !c.HttpOnly {
				t.Error("session cookie must be HttpOnly")
			}
		}
	}
	if !gotCookie {
		t.Error("expected session cookie to be set")
	}

	body := decodeBody(t, rec)
	userBody, ok := body["user"].(map[string]interface{})
	if !ok {
		t.Fatal("expected user object in response")
	}
	if userBody["email"] != "eleni@example.gr" {
		t.Errorf("unexpected email in response: %v", userBody["email"])
	}
	if _, exposed := userBody["password_hash"]; exposed {
		t.Error("password hash must never appear in responses")
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	h := newTestAuthHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"","email":"not-an-email","password":"short"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected error object in response")
	}
	fields, ok := errObj["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("expected field errors in response")
	}
	for _, field := range []string{"name", "email", "password"} {
		if _, present := fields[field]; !present {
			t.Errorf("expected field error for %q", field)
		}
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	users := &mockUserService{
		RegisterFunc: func(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
			return nil, domain.Conflict("user.register", "An account with this email already exists")
		},
	}
	h := newTestAuthHandler(users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Test","email":"taken@example.gr","password":"secret123"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRegister_MalformedJSON(t *testing.T) {
	h := newTestAuthHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// =============================================================================
// Login Tests
// =============================================================================

func TestLogin_Success(t *testing.T) {
	user := testUser()
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			return &domain.LoginResult{User: user, Token: "session-token"}, nil
		},
	}
	h := newTestAuthHandler(users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"eleni@example.gr","password":"secret123"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var gotCookie bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.Value == "session-token" {
			gotCookie = true
		}
	}
	if !gotCookie {
		t.Error("expected session cookie to be set")
	}
}

func TestLogin_InvalidCredentials_GenericMessage(t *testing.T) {
	users := &mockUserService{
		LoginFunc: func(ctx context.Context, email, password string) (*domain.LoginResult, error) {
			return nil, domain.Unauthorized("user.login", "no user with that email")
		},
	}
	h := newTestAuthHandler(users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"nobody@example.gr","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	// The service message must not leak whether the email exists.
	if strings.Contains(rec.Body.String(), "no user with that email") {
		t.Error("login error must not reveal whether the email exists")
	}
	if !strings.Contains(rec.Body.String(), "Invalid email or password") {
		t.Errorf("expected generic credentials message, got %s", rec.Body.String())
	}
}

func TestLogin_MissingFields(t *testing.T) {
	h := newTestAuthHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"","password":""}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// =============================================================================
// Logout Tests
// =============================================================================

func TestLogout_ClearsCookie(t *testing.T) {
	var loggedOut string
	users := &mockUserService{
		LogoutFunc: func(ctx context.Context, token string) error {
			loggedOut = token
			return nil
		},
	}
	h := newTestAuthHandler(users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "session-token"})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if loggedOut != "session-token" {
		t.Errorf("expected session to be invalidated, got %q", loggedOut)
	}

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}

func TestLogout_WithoutSession_IsIdempotent(t *testing.T) {
	h := newTestAuthHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

// =============================================================================
// Email Verification Tests
// =============================================================================

func TestVerifyEmail_Success(t *testing.T) {
	users := &mockUserService{
		VerifyEmailFunc: func(ctx context.Context, token string) error {
			if token != "valid-token" {
				t.Errorf("unexpected token %q", token)
			}
			return nil
		},
	}
	h := newTestAuthHandler(users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/verify-email",
		strings.NewReader(`{"token":"valid-token"}`))
	rec := httptest.NewRecorder()
	h.VerifyEmail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestVerifyEmail_AlreadyVerified_IsOK(t *testing.T) {
	users := &mockUserService{
		VerifyEmailFunc: func(ctx context.Context, token string) error {
			return domain.Conflict("user.verify_email", "Email already verified")
		},
	}
	h := newTestAuthHandler(users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/verify-email",
		strings.NewReader(`{"token":"stale-token"}`))
	rec := httptest.NewRecorder()
	h.VerifyEmail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("stale verification links should be harmless, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already_verified") {
		t.Errorf("expected already_verified status, got %s", rec.Body.String())
	}
}

func TestVerifyEmail_ExpiredToken(t *testing.T) {
	users := &mockUserService{
		VerifyEmailFunc: func(ctx context.Context, token string) error {
			return domain.Errorf(domain.ENOTFOUND, "user.verify_email", "Verification link is invalid or has expired")
		},
	}
	h := newTestAuthHandler(users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/verify-email",
		strings.NewReader(`{"token":"expired"}`))
	rec := httptest.NewRecorder()
	h.VerifyEmail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// =============================================================================
// Password Reset Tests
// =============================================================================

func TestForgotPassword_UnknownEmail_StillSaysSent(t *testing.T) {
	users := &mockUserService{
		CreatePasswordResetTokenFunc: func(ctx context.Context, email string) (*domain.PasswordResetResult, error) {
			return nil, domain.Errorf(domain.ENOTFOUND, "user.password_reset", "no such user")
		},
	}
	h := newTestAuthHandler(users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/forgot-password",
		strings.NewReader(`{"email":"nobody@example.gr"}`))
	rec := httptest.NewRecorder()
	h.ForgotPassword(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 regardless of account existence, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "sent") {
		t.Errorf("expected sent status, got %s", rec.Body.String())
	}
}

func TestResetPassword_ShortPassword(t *testing.T) {
	h := newTestAuthHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/reset-password",
		strings.NewReader(`{"token":"tok","password":"short"}`))
	rec := httptest.NewRecorder()
	h.ResetPassword(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestResetPassword_Success(t *testing.T) {
	var gotParams domain.ResetPasswordParams
	users := &mockUserService{
		ResetPasswordFunc: func(ctx context.Context, params domain.ResetPasswordParams) error {
			gotParams = params
			return nil
		},
	}
	h := newTestAuthHandler(users)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/reset-password",
		strings.NewReader(`{"token":"tok","password":"newsecret1"}`))
	rec := httptest.NewRecorder()
	h.ResetPassword(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotParams.Token != "tok" || gotParams.NewPassword != "newsecret1" {
		t.Errorf("unexpected reset params: %+v", gotParams)
	}
}
