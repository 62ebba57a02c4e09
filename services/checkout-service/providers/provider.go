package providers

import (
	"context"
	"encoding/json"
)

// EventCheckoutSessionCompleted is the only event type that creates orders.
const EventCheckoutSessionCompleted = "checkout.session.completed"

// LineItemInput is one priced entry of a session being created. UnitAmount is in minor units.
type LineItemInput struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

type CreateSessionInput struct {
	LineItems      []LineItemInput
	Currency       string
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	IdempotencyKey string
}

// LineItem is a line item of a retrieved session. Amounts are in minor units.
type LineItem struct {
	Name        string
	Quantity    int64
	UnitAmount  int64
	AmountTotal int64
	Currency    string
}

// CheckoutSession is the provider-neutral view of a hosted checkout session.
type CheckoutSession struct {
	ID            string
	URL           string
	AmountTotal   int64
	Currency      string
	CustomerEmail string
	Metadata      map[string]string
	LineItems     []LineItem
}

// WebhookEvent is a verified provider event.
type WebhookEvent struct {
	ID   string
	Type string
	// ObjectID is the id of the object the event is about, for checkout events the session id.
	ObjectID string
	Raw      json.RawMessage
	Payload  []byte
}

// PaymentProvider is the hosted checkout backend.
type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, in CreateSessionInput) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	ConstructEvent(payload []byte, signature string) (*WebhookEvent, error)
}
