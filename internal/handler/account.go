// Account settings endpoints: engineer profile and password changes.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/adeia-app/adeia/internal/auth"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/service"
	"github.com/adeia-app/adeia/internal/session"
)

// AccountHandler handles profile and password HTTP requests.
//
// Routes handled:
//   - PUT /api/account/profile
//   - PUT /api/account/password
type AccountHandler struct {
	userService service.UserService
	logger      *slog.Logger
	isSecure    bool
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(userService service.UserService, logger *slog.Logger, isSecure bool) *AccountHandler {
	return &AccountHandler{
		userService: userService,
		logger:      logger,
		isSecure:    isSecure,
	}
}

// RegisterRoutes registers account routes behind the given auth middleware.
func (h *AccountHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("PUT /api/account/profile", requireUser(http.HandlerFunc(h.UpdateProfile)))
	mux.Handle("PUT /api/account/password", requireUser(http.HandlerFunc(h.ChangePassword)))
}

// =============================================================================
// PUT /api/account/profile
// =============================================================================

type profileRequest struct {
	Name           string `json:"name"`
	CompanyName    string `json:"company_name"`
	Phone          string `json:"phone"`
	RegistryNumber string `json:"registry_number"`
}

// UpdateProfile updates the engineer's profile fields, including the
// TEE registry number that appears on generated reports.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("account.update_profile", "Name is required"))
		return
	}

	err := h.userService.UpdateProfile(r.Context(), domain.ProfileUpdateParams{
		UserID:         user.ID,
		Name:           req.Name,
		CompanyName:    strings.TrimSpace(req.CompanyName),
		Phone:          strings.TrimSpace(req.Phone),
		RegistryNumber: strings.TrimSpace(req.RegistryNumber),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	updated, err := h.userService.GetByID(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("profile updated", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": toUserResponse(updated)})
}

// =============================================================================
// PUT /api/account/password
// =============================================================================

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword changes the password after verifying the current one.
// The service invalidates every session, including this one, so the
// client must log in again.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if req.CurrentPassword == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("account.change_password", "Current password is required"))
		return
	}
	if len(req.NewPassword) < 8 {
		ErrorResponse(w, r, h.logger, domain.Invalid("account.change_password", "New password must be at least 8 characters"))
		return
	}

	err := h.userService.ChangePassword(r.Context(), domain.PasswordChangeParams{
		UserID:          user.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	session.ClearCookie(w, h.isSecure)
	h.logger.Info("password changed", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "changed"})
}
