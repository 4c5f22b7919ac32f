// Billing endpoints backed by Stripe Checkout and the Customer Portal.
//
// Plan entitlements are applied by the webhook handler when Stripe
// confirms the subscription, never optimistically here.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/adeia-app/adeia/internal/auth"
	"github.com/adeia-app/adeia/internal/billing"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/service"
)

// BillingHandler handles billing and subscription management HTTP requests.
//
// Routes handled:
//   - GET  /api/billing/subscription
//   - POST /api/billing/checkout
//   - POST /api/billing/portal
//   - POST /api/billing/cancel
//   - POST /api/billing/reactivate
type BillingHandler struct {
	billing     billing.Service
	userService service.UserService
	baseURL     string
	logger      *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
// billingService may be nil when Stripe is not configured (development mode).
func NewBillingHandler(billingService billing.Service, userService service.UserService, baseURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing:     billingService,
		userService: userService,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// RegisterRoutes registers billing routes behind the given auth middleware.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/billing/subscription", requireUser(http.HandlerFunc(h.GetSubscription)))
	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
	mux.Handle("POST /api/billing/portal", requireUser(http.HandlerFunc(h.OpenPortal)))
	mux.Handle("POST /api/billing/cancel", requireUser(http.HandlerFunc(h.CancelSubscription)))
	mux.Handle("POST /api/billing/reactivate", requireUser(http.HandlerFunc(h.ReactivateSubscription)))
}

// notConfigured is returned when Stripe credentials are absent.
func (h *BillingHandler) notConfigured(w http.ResponseWriter, r *http.Request) bool {
	if h.billing != nil {
		return false
	}
	err := domain.Errorf(domain.ENOTIMPL, "billing", "Billing is not configured")
	ErrorResponse(w, r, h.logger, err)
	return true
}

// =============================================================================
// GET /api/billing/subscription
// =============================================================================

// SubscriptionResponse describes the user's current subscription state.
type SubscriptionResponse struct {
	Plan              string `json:"plan"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	PeriodEnd         int64  `json:"period_end,omitempty"` // Unix seconds
}

// GetSubscription returns the current plan and, when a Stripe subscription
// exists, its live status.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	resp := SubscriptionResponse{
		Plan:   string(user.Plan),
		Status: string(user.SubscriptionStatus),
	}

	if h.billing != nil && user.SubscriptionID != "" {
		sub, err := h.billing.GetSubscription(user.SubscriptionID)
		if err != nil {
			h.logger.Warn("failed to fetch stripe subscription", "error", err, "user_id", user.ID)
		} else {
			resp.Status = string(sub.Status)
			resp.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
			resp.PeriodEnd = sub.CurrentPeriodEnd
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subscription": resp})
}

// =============================================================================
// POST /api/billing/checkout
// =============================================================================

type checkoutRequest struct {
	Plan string `json:"plan"`
}

// CreateCheckout starts a Stripe Checkout session for a paid plan and
// returns the URL the client should redirect to.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}
	user := auth.GetUser(r.Context())

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	tier := domain.PlanTier(req.Plan)
	priceID := h.billing.PriceIDForTier(tier)
	if priceID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("billing.checkout", "Unknown or free plan"))
		return
	}

	// Lazily create the Stripe customer on first checkout.
	customerID := user.StripeCustomerID
	if customerID == "" {
		id, err := h.billing.CreateCustomer(user.Email, user.Name)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EINTERNAL, "billing.checkout", "Failed to create billing customer"))
			return
		}
		if err := h.userService.UpdateStripeCustomer(r.Context(), user.ID, id); err != nil {
			ErrorResponse(w, r, h.logger, err)
			return
		}
		customerID = id
	}

	successURL := h.baseURL + "/billing?checkout=success"
	cancelURL := h.baseURL + "/billing?checkout=cancelled"
	url, err := h.billing.CreateCheckoutSession(customerID, priceID, successURL, cancelURL)
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EINTERNAL, "billing.checkout", "Failed to create checkout session"))
		return
	}

	h.logger.Info("checkout session created", "user_id", user.ID, "plan", tier)
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// =============================================================================
// POST /api/billing/portal
// =============================================================================

// OpenPortal creates a Stripe Customer Portal session.
func (h *BillingHandler) OpenPortal(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}
	user := auth.GetUser(r.Context())

	if user.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("billing.portal", "No billing account exists yet"))
		return
	}

	url, err := h.billing.CreatePortalSession(user.StripeCustomerID, h.baseURL+"/billing")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EINTERNAL, "billing.portal", "Failed to create portal session"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// =============================================================================
// POST /api/billing/cancel
// =============================================================================

// CancelSubscription sets the subscription to cancel at period end.
// The plan stays until Stripe sends the deletion webhook.
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}
	user := auth.GetUser(r.Context())

	if user.SubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("billing.cancel", "No active subscription"))
		return
	}

	if err := h.billing.CancelSubscription(user.SubscriptionID); err != nil {
		ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EINTERNAL, "billing.cancel", "Failed to cancel subscription"))
		return
	}

	h.logger.Info("subscription set to cancel at period end", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// =============================================================================
// POST /api/billing/reactivate
// =============================================================================

// ReactivateSubscription removes a pending cancellation.
func (h *BillingHandler) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	if h.notConfigured(w, r) {
		return
	}
	user := auth.GetUser(r.Context())

	if user.SubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("billing.reactivate", "No subscription to reactivate"))
		return
	}

	if err := h.billing.ReactivateSubscription(user.SubscriptionID); err != nil {
		ErrorResponse(w, r, h.logger, domain.Wrap(err, domain.EINTERNAL, "billing.reactivate", "Failed to reactivate subscription"))
		return
	}

	h.logger.Info("subscription reactivated", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}
