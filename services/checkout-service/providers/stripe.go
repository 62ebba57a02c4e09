package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
)

const unknownProductName = "Unknown Product"

// StripeProvider implements PaymentProvider on Stripe Checkout.
type StripeProvider struct {
	sessions      session.Client
	webhookSecret string
	tolerance     time.Duration
}

type StripeConfig struct {
	APIKey           string
	WebhookSecret    string
	WebhookTolerance time.Duration
}

// NewStripeProvider uses the default API backend. The key travels with the session client, so the
// package-level stripe.Key stays untouched.
func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	return NewStripeProviderWithBackend(cfg, stripe.GetBackend(stripe.APIBackend))
}

// NewStripeProviderWithBackend lets callers point the client at a different API host.
func NewStripeProviderWithBackend(cfg StripeConfig, backend stripe.Backend) *StripeProvider {
	tolerance := cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeProvider{
		sessions:      session.Client{B: backend, Key: cfg.APIKey},
		webhookSecret: cfg.WebhookSecret,
		tolerance:     tolerance,
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CreateSessionInput) (*CheckoutSession, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.LineItems))
	for _, item := range in.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(in.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
				UnitAmount: stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(in.SuccessURL),
		CancelURL:          stripe.String(in.CancelURL),
	}
	params.Context = ctx
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	if in.IdempotencyKey != "" {
		params.SetIdempotencyKey(in.IdempotencyKey)
	}

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create checkout session: %w", err)
	}
	return toCheckoutSession(s), nil
}

// GetCheckoutSession retrieves the session with its line items expanded.
func (p *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price.product")

	s, err := p.sessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve checkout session %s: %w", sessionID, err)
	}
	return toCheckoutSession(s), nil
}

// ConstructEvent verifies the Stripe-Signature header against the exact raw payload.
func (p *StripeProvider) ConstructEvent(payload []byte, signature string) (*WebhookEvent, error) {
	if signature == "" {
		return nil, errors.New("missing Stripe-Signature header")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                p.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type), Payload: payload}
	if event.Data != nil {
		out.Raw = event.Data.Raw
		var obj struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Raw, &obj); err == nil {
			out.ObjectID = obj.ID
		}
	}
	return out, nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		CustomerEmail: s.CustomerEmail,
		Metadata:      s.Metadata,
	}
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if s.LineItems != nil {
		for _, li := range s.LineItems.Data {
			if li == nil {
				continue
			}
			item := LineItem{
				Name:        lineItemName(li),
				Quantity:    li.Quantity,
				AmountTotal: li.AmountTotal,
				Currency:    string(li.Currency),
			}
			if li.Price != nil {
				item.UnitAmount = li.Price.UnitAmount
			}
			out.LineItems = append(out.LineItems, item)
		}
	}
	return out
}

func lineItemName(li *stripe.LineItem) string {
	if li.Description != "" {
		return li.Description
	}
	if li.Price != nil && li.Price.Product != nil && li.Price.Product.Name != "" {
		return li.Price.Product.Name
	}
	return unknownProductName
}
