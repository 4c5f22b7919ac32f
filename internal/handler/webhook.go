// Stripe webhook handler.
//
// The route is public; authentication is the webhook signature. Plan
// entitlement changes flow through QuotaService.SetPlan so the usage
// counter semantics stay in one place: the counter and period anchor are
// never touched by a plan change.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/adeia-app/adeia/internal/billing"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/service"
	"github.com/stripe/stripe-go/v79"
)

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing      billing.Service
	userService  service.UserService
	quotaService service.QuotaService
	logger       *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(
	billingService billing.Service,
	userService service.UserService,
	quotaService service.QuotaService,
	logger *slog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		billing:      billingService,
		userService:  userService,
		quotaService: quotaService,
		logger:       logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
// These routes are public; no auth middleware.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook verifies and dispatches incoming Stripe events.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)

	ctx := r.Context()
	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		h.handleSubscriptionChanged(ctx, event)
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(ctx, event)
	case "invoice.payment_succeeded":
		h.handlePaymentSucceeded(ctx, event)
	case "invoice.payment_failed":
		h.handlePaymentFailed(ctx, event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	// Always 200 once the signature checks out: processing failures are
	// logged, and a retry from Stripe would hit the same condition.
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		h.logger.Error("failed to parse checkout session", "error", err)
		return
	}

	if sess.Customer == nil || sess.Subscription == nil {
		h.logger.Warn("checkout session missing customer or subscription", "session_id", sess.ID)
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, sess.Customer.ID)
	if err != nil {
		// The subscription.created event carries the same data and will
		// land after the customer ID is saved.
		h.logger.Info("user not found for checkout session, deferring to subscription event",
			"customer_id", sess.Customer.ID)
		return
	}

	if err := h.userService.UpdateSubscription(ctx, user.ID,
		string(domain.SubscriptionStatusActive), sess.Subscription.ID); err != nil {
		h.logger.Error("failed to update subscription on checkout", "error", err, "user_id", user.ID)
	}
}

// handleSubscriptionChanged applies both the subscription status and the
// plan tier derived from the subscription's price.
func (h *WebhookHandler) handleSubscriptionChanged(ctx context.Context, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription event", "error", err)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription event missing customer", "subscription_id", sub.ID)
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Warn("user not found for subscription event",
			"customer_id", sub.Customer.ID, "subscription_id", sub.ID)
		return
	}

	status := string(sub.Status)
	if err := h.userService.UpdateSubscription(ctx, user.ID, status, sub.ID); err != nil {
		h.logger.Error("failed to update subscription", "error", err, "user_id", user.ID)
		return
	}

	var tier domain.PlanTier
	if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		tier = h.billing.TierForPriceID(sub.Items.Data[0].Price.ID)
	}
	if tier == "" {
		h.logger.Warn("subscription price maps to no plan tier",
			"subscription_id", sub.ID, "user_id", user.ID)
		return
	}

	if user.Plan != tier {
		if _, err := h.quotaService.SetPlan(ctx, user.ID, tier); err != nil {
			h.logger.Error("failed to apply plan change", "error", err, "user_id", user.ID, "tier", tier)
			return
		}
	}

	h.logger.Info("subscription event processed",
		"user_id", user.ID, "status", status, "tier", tier)
}

// handleSubscriptionDeleted downgrades the user to the free plan. The
// already-used count for the current month stands; a lapsed subscriber
// over the free quota is denied until the month rolls over.
func (h *WebhookHandler) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription deleted event missing customer", "subscription_id", sub.ID)
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Warn("user not found for subscription deletion", "customer_id", sub.Customer.ID)
		return
	}

	if err := h.userService.UpdateSubscription(ctx, user.ID,
		string(domain.SubscriptionStatusInactive), ""); err != nil {
		h.logger.Error("failed to deactivate subscription", "error", err, "user_id", user.ID)
	}

	if _, err := h.quotaService.SetPlan(ctx, user.ID, domain.PlanTierFree); err != nil {
		h.logger.Error("failed to downgrade plan", "error", err, "user_id", user.ID)
		return
	}

	h.logger.Info("subscription deleted, user downgraded to free",
		"user_id", user.ID, "subscription_id", sub.ID)
}

func (h *WebhookHandler) handlePaymentSucceeded(ctx context.Context, event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice payment succeeded event", "error", err)
		return
	}

	if invoice.Customer == nil {
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, invoice.Customer.ID)
	if err != nil {
		h.logger.Debug("user not found for payment succeeded", "customer_id", invoice.Customer.ID)
		return
	}

	// Recovery from past_due.
	if user.SubscriptionStatus != domain.SubscriptionStatusActive {
		if err := h.userService.UpdateSubscription(ctx, user.ID,
			string(domain.SubscriptionStatusActive), user.SubscriptionID); err != nil {
			h.logger.Error("failed to reactivate on payment success", "error", err, "user_id", user.ID)
		}
	}
}

func (h *WebhookHandler) handlePaymentFailed(ctx context.Context, event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice payment failed event", "error", err)
		return
	}

	if invoice.Customer == nil {
		return
	}

	user, err := h.userService.GetByStripeCustomerID(ctx, invoice.Customer.ID)
	if err != nil {
		h.logger.Debug("user not found for payment failed", "customer_id", invoice.Customer.ID)
		return
	}

	if err := h.userService.UpdateSubscription(ctx, user.ID,
		string(domain.SubscriptionStatusPastDue), user.SubscriptionID); err != nil {
		h.logger.Error("failed to set past_due on payment failure", "error", err, "user_id", user.ID)
	}

	h.logger.Warn("payment failed", "user_id", user.ID, "customer_id", invoice.Customer.ID)
}
