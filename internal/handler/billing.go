// Credit pack purchase handlers backed by Stripe.
//
// Routes handled:
//   - POST /api/v1/billing/checkout -> CreateCheckout
//   - POST /webhooks/stripe         -> HandleStripeWebhook
//
// The webhook route is PUBLIC because Stripe calls it directly.
// Authentication is via the Stripe webhook signature verification.
package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/averline/concierge/internal/billing"
	"github.com/averline/concierge/internal/domain"
	"github.com/averline/concierge/internal/metrics"
	"github.com/stripe/stripe-go/v79"
)

// BillingHandler handles credit pack purchases.
type BillingHandler struct {
	billing billing.Service
	baseURL string
	logger  *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
// billingService may be nil when Stripe is not configured (development mode).
func NewBillingHandler(billingService billing.Service, baseURL string, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing: billingService,
		baseURL: baseURL,
		logger:  logger,
	}
}

// RegisterRoutes registers billing routes on the provided mux.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/billing/checkout", h.CreateCheckout)
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// checkoutRequest is the request body for POST /api/v1/billing/checkout.
type checkoutRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	PriceID string `json:"price_id"`
}

// CreateCheckout creates a Stripe Checkout session for a credit pack and
// returns the hosted checkout URL.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "billing.checkout"

	if h.billing == nil {
		h.logger.Warn("checkout attempted but Stripe is not configured")
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EINTERNAL, op, "Billing is not configured"))
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid request body"))
		return
	}
	if req.Email == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Email is required"))
		return
	}
	if h.billing.CreditsForPriceID(req.PriceID) == 0 {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Unknown credit pack"))
		return
	}

	customerID, err := h.billing.CreateCustomer(req.Email, req.Name)
	if err != nil {
		h.logger.Error("failed to create stripe customer", "error", err, "email", req.Email)
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to initialize billing"))
		return
	}

	successURL := fmt.Sprintf("%s/billing/success?session_id={CHECKOUT_SESSION_ID}", h.baseURL)
	cancelURL := fmt.Sprintf("%s/billing/canceled", h.baseURL)

	checkoutURL, err := h.billing.CreateCheckoutSession(customerID, req.PriceID, successURL, cancelURL)
	if err != nil {
		h.logger.Error("failed to create checkout session", "error", err, "customer_id", customerID)
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to create checkout session"))
		return
	}

	metrics.CheckoutSessionsCreated.Inc()
	writeJSON(w, http.StatusOK, map[string]string{"checkout_url": checkoutURL})
}

// HandleStripeWebhook processes incoming Stripe webhook events.
func (h *BillingHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Read body (limit to 64KB)
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
	metrics.WebhookEvents.WithLabelValues(string(event.Type)).Inc()

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *BillingHandler) handleCheckoutCompleted(event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("failed to parse checkout session", "error", err)
		return
	}

	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	h.logger.Info("credit pack purchase completed",
		"session_id", session.ID,
		"customer_id", customerID,
		"amount_total", session.AmountTotal,
	)
}
