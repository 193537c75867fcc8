// Package billing provides Stripe integration for selling member credit
// packs, the credits that the pricing engine charges against.
package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/webhook"
)

// Service defines the interface for billing operations.
type Service interface {
	// CreateCustomer creates a new Stripe customer for the given email.
	CreateCustomer(email, name string) (string, error)

	// CreateCheckoutSession creates a Stripe Checkout session for a
	// one-time credit-pack purchase.
	// Returns the checkout URL to redirect the member to.
	CreateCheckoutSession(customerID, priceID, successURL, cancelURL string) (string, error)

	// VerifyWebhookSignature verifies the Stripe webhook signature and returns the event.
	VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error)

	// CreditsForPriceID returns the number of credits granted by a given
	// Stripe price ID, or 0 for an unknown price.
	CreditsForPriceID(priceID string) int64
}

// PriceConfig holds the Stripe price IDs for each credit pack.
type PriceConfig struct {
	Pack10PriceID  string // 10 credits
	Pack50PriceID  string // 50 credits
	Pack200PriceID string // 200 credits
}

// stripeService is the concrete implementation of Service.
type stripeService struct {
	webhookSecret  string
	prices         PriceConfig
	priceToCredits map[string]int64 // maps price ID -> credits granted
}

// NewStripeService creates a new Stripe billing service.
//
// The secretKey is used to authenticate Stripe API calls.
// The webhookSecret is used to verify incoming webhook signatures.
// The prices configure which Stripe price IDs map to which credit packs.
func NewStripeService(secretKey, webhookSecret string, prices PriceConfig) Service {
	stripe.Key = secretKey

	priceToCredits := make(map[string]int64)
	if prices.Pack10PriceID != "" {
		priceToCredits[prices.Pack10PriceID] = 10
	}
	if prices.Pack50PriceID != "" {
		priceToCredits[prices.Pack50PriceID] = 50
	}
	if prices.Pack200PriceID != "" {
		priceToCredits[prices.Pack200PriceID] = 200
	}

	return &stripeService{
		webhookSecret:  webhookSecret,
		prices:         prices,
		priceToCredits: priceToCredits,
	}
}

func (s *stripeService) CreateCustomer(email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	c, err := customer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create customer: %w", err)
	}
	return c.ID, nil
}

func (s *stripeService) CreateCheckoutSession(customerID, priceID, successURL, cancelURL string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe create checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *stripeService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		return stripe.Event{}, fmt.Errorf("stripe webhook signature verification failed: %w", err)
	}
	return event, nil
}

func (s *stripeService) CreditsForPriceID(priceID string) int64 {
	if credits, ok := s.priceToCredits[priceID]; ok {
		return credits
	}
	return 0
}
