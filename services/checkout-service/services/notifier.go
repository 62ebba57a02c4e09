package services

import (
	"context"
	"encoding/json"
	"fmt"

	aws_pkg "github.com/dachishengelia/restyle-backend/pkg/aws"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
)

// Notifier hands notification events to the notification consumer.
type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent) error
}

// EventNotifier publishes events as JSON to an SNS topic or SQS queue.
type EventNotifier struct {
	publisher   aws_pkg.Publisher
	destination string
}

func NewEventNotifier(publisher aws_pkg.Publisher, destination string) *EventNotifier {
	return &EventNotifier{publisher: publisher, destination: destination}
}

// Notify is a no-op when no publisher or destination is configured.
func (n *EventNotifier) Notify(ctx context.Context, event models.NotificationEvent) error {
	if n == nil || n.publisher == nil || n.destination == "" {
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s notification: %w", event.EventType, err)
	}
	return n.publisher.Publish(ctx, n.destination, body)
}
