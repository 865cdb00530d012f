// Package payments starts hosted checkouts for invoice point purchases.
package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// MetadataUserID is the checkout metadata key the webhook credits.
const MetadataUserID = "user_id"

// SessionCreator creates a provider checkout session.
type SessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// stripeSessions calls the hosted checkout API.
type stripeSessions struct{}

func (stripeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

// Config prices one invoice point.
type Config struct {
	SecretKey  string
	Currency   string
	UnitAmount int64
	BaseURL    string
}

// Checkout builds single-point checkout sessions.
type Checkout struct {
	cfg      Config
	sessions SessionCreator
}

// Option configures Checkout.
type Option func(*Checkout)

// WithSessionCreator replaces the provider client, mainly for tests.
func WithSessionCreator(s SessionCreator) Option {
	return func(c *Checkout) { c.sessions = s }
}

func NewCheckout(cfg Config, opts ...Option) *Checkout {
	if cfg.Currency == "" {
		cfg.Currency = "nok"
	}
	if cfg.UnitAmount == 0 {
		cfg.UnitAmount = 600
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	c := &Checkout{cfg: cfg, sessions: stripeSessions{}}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Params returns the session parameters for one point bought by userID.
func (c *Checkout) Params(ctx context.Context, userID uuid.UUID, productName string) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(c.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(productName),
					},
					UnitAmount: stripe.Int64(c.cfg.UnitAmount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(c.cfg.BaseURL + "/dashboard?success=1"),
		CancelURL:         stripe.String(c.cfg.BaseURL + "/dashboard?canceled=1"),
		ClientReferenceID: stripe.String(userID.String()),
		Metadata: map[string]string{
			MetadataUserID: userID.String(),
		},
	}
	params.Context = ctx
	return params
}

// Start creates the session and returns the hosted checkout URL.
func (c *Checkout) Start(ctx context.Context, userID uuid.UUID, productName string) (string, error) {
	s, err := c.sessions.New(c.Params(ctx, userID, productName))
	if err != nil {
		return "", err
	}
	return s.URL, nil
}
