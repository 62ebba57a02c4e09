package services

import (
	"context"

	"go.uber.org/zap"

	commonerrors "github.com/dachishengelia/restyle-backend/services/common/errors"
	"github.com/dachishengelia/restyle-backend/services/common/logger"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/providers"
)

// CheckoutReconciler is the order-creating side of the webhook flow.
type CheckoutReconciler interface {
	ReconcileCheckout(ctx context.Context, sessionID string) (*models.Order, bool, *commonerrors.Error)
}

// EventArchiver stores verified raw webhook payloads.
type EventArchiver interface {
	Archive(ctx context.Context, eventID, eventType string, payload []byte) error
}

// WebhookService verifies provider events and routes them.
type WebhookService struct {
	provider   providers.PaymentProvider
	reconciler CheckoutReconciler
	archiver   EventArchiver
}

// NewWebhookService builds the service. archiver may be nil.
func NewWebhookService(provider providers.PaymentProvider, reconciler CheckoutReconciler, archiver EventArchiver) *WebhookService {
	return &WebhookService{provider: provider, reconciler: reconciler, archiver: archiver}
}

// VerifyEvent authenticates payload against its signature header.
func (s *WebhookService) VerifyEvent(ctx context.Context, payload []byte, signature string) (*providers.WebhookEvent, *commonerrors.Error) {
	event, err := s.provider.ConstructEvent(payload, signature)
	if err != nil {
		logger.Warn(ctx, "Webhook signature verification failed", zap.Error(err))
		return nil, commonerrors.Wrap(commonerrors.ErrInvalidSignature, err)
	}
	return event, nil
}

// Handle verifies, archives and dispatches one delivery.
func (s *WebhookService) Handle(ctx context.Context, payload []byte, signature string) *commonerrors.Error {
	event, appErr := s.VerifyEvent(ctx, payload, signature)
	if appErr != nil {
		return appErr
	}

	logger.Info(ctx, "Processing webhook", zap.String("event_id", event.ID), zap.String("event_type", event.Type))
	s.archive(ctx, event)
	return s.Dispatch(ctx, event)
}

// Dispatch routes a verified event. Only completed checkouts have side effects.
func (s *WebhookService) Dispatch(ctx context.Context, event *providers.WebhookEvent) *commonerrors.Error {
	switch event.Type {
	case providers.EventCheckoutSessionCompleted:
		_, _, appErr := s.reconciler.ReconcileCheckout(ctx, event.ObjectID)
		return appErr
	default:
		logger.Info(ctx, "Unhandled webhook event type", zap.String("event_type", event.Type), zap.String("event_id", event.ID))
		return nil
	}
}

func (s *WebhookService) archive(ctx context.Context, event *providers.WebhookEvent) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Archive(ctx, event.ID, event.Type, event.Payload); err != nil {
		logger.Warn(ctx, "Failed to archive webhook payload", zap.String("event_id", event.ID), zap.Error(err))
	}
}
