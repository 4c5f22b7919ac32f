// Admin endpoints. All routes require an admin session.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/service"
)

// AdminHandler handles administrative HTTP requests.
//
// Routes handled:
//   - GET /api/admin/users/{id}
//   - GET /api/admin/users/{id}/usage
//   - PUT /api/admin/users/{id}/plan
type AdminHandler struct {
	userService  service.UserService
	quotaService service.QuotaService
	logger       *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(userService service.UserService, quotaService service.QuotaService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		userService:  userService,
		quotaService: quotaService,
		logger:       logger,
	}
}

// RegisterRoutes registers admin routes. requireAdmin must reject both
// unauthenticated and non-admin users.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, requireAdmin func(http.Handler) http.Handler) {
	mux.Handle("GET /api/admin/users/{id}", requireAdmin(http.HandlerFunc(h.GetUser)))
	mux.Handle("GET /api/admin/users/{id}/usage", requireAdmin(http.HandlerFunc(h.GetUserUsage)))
	mux.Handle("PUT /api/admin/users/{id}/plan", requireAdmin(http.HandlerFunc(h.SetUserPlan)))
}

// GetUser returns one user's account details.
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": toUserResponse(user)})
}

// GetUserUsage returns one user's current-period usage.
func (h *AdminHandler) GetUserUsage(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	summary, err := h.quotaService.GetUsage(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"usage": toUsageResponse(summary)})
}

type setPlanRequest struct {
	Plan string `json:"plan"`
}

// SetUserPlan applies a manual plan transition, bypassing Stripe. Used
// for support overrides and comped accounts. The usage counter is not
// touched: an upgrade mid-month keeps the used count, and cycling plans
// cannot buy extra quota.
func (h *AdminHandler) SetUserPlan(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req setPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tier := domain.PlanTier(req.Plan)
	if !domain.ValidPlanTier(string(tier)) {
		ErrorResponse(w, r, h.logger, domain.Invalid("admin.set_plan", "Unknown plan tier"))
		return
	}

	user, err := h.quotaService.SetPlan(r.Context(), userID, tier)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("plan set by admin", "user_id", userID, "plan", tier)
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": toUserResponse(user)})
}
