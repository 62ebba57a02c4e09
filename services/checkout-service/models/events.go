package models

import "fmt"

const (
	EventOrderCreated     = "order_created"
	EventProductPurchased = "product_purchased"
)

// StatusEventType names the notification published when an order moves to status.
func StatusEventType(status OrderStatus) string {
	return fmt.Sprintf("order_%s", status)
}

// NotificationEvent is the payload consumed by the notification service.
type NotificationEvent struct {
	EventType string                 `json:"event_type"`
	UserID    string                 `json:"user_id"`
	Recipient string                 `json:"recipient,omitempty"`
	Data      map[string]interface{} `json:"data"`
}
