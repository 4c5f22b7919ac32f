// Usage display endpoint. Reading usage is a pure read and never touches
// the stored counter.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/adeia-app/adeia/internal/auth"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/service"
)

// UsageHandler handles the usage summary HTTP request.
//
// Routes handled:
//   - GET /api/usage
type UsageHandler struct {
	quota  service.QuotaService
	logger *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(quota service.QuotaService, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{
		quota:  quota,
		logger: logger,
	}
}

// RegisterRoutes registers the usage route behind the given auth middleware.
func (h *UsageHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/usage", requireUser(http.HandlerFunc(h.Get)))
}

// UsageResponse is the JSON representation of current-period usage.
// Remaining is -1 on unlimited plans.
type UsageResponse struct {
	Plan          string    `json:"plan"`
	UsedThisMonth int       `json:"used_this_month"`
	MonthlyQuota  int       `json:"monthly_quota"`
	Remaining     int       `json:"remaining"`
	Unlimited     bool      `json:"unlimited"`
	PeriodStart   time.Time `json:"period_start"`
	ResetsAt      time.Time `json:"resets_at"`
}

func toUsageResponse(s *domain.UsageSummary) UsageResponse {
	return UsageResponse{
		Plan:          string(s.Plan),
		UsedThisMonth: s.UsedThisMonth,
		MonthlyQuota:  s.MonthlyQuota,
		Remaining:     s.Remaining(),
		Unlimited:     s.Unlimited,
		PeriodStart:   s.PeriodStart,
		ResetsAt:      s.ResetsAt,
	}
}

// Get returns the authenticated user's usage for the current calendar month.
func (h *UsageHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	summary, err := h.quota.GetUsage(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"usage": toUsageResponse(summary)})
}
