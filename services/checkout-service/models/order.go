package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	StatusPlaced    OrderStatus = "placed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every lifecycle state. Any state may move to any other.
var OrderStatuses = []OrderStatus{StatusPlaced, StatusShipped, StatusDelivered, StatusCancelled}

func (s OrderStatus) IsValid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type Order struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        string         `gorm:"type:varchar(64);not null;index" json:"user"`
	SessionID     string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_orders_session_id" json:"sessionId"`
	Amount        float64        `gorm:"type:numeric(12,2);not null" json:"amount"`
	AmountMinor   int64          `gorm:"not null" json:"amountMinor"`
	Currency      string         `gorm:"type:varchar(10);not null;default:'usd'" json:"currency"`
	Status        OrderStatus    `gorm:"type:varchar(20);not null;default:'placed'" json:"status"`
	CustomerEmail *string        `gorm:"type:varchar(255)" json:"customerEmail,omitempty"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Items         []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// OrderItem snapshots one provider line item. Amounts are minor units.
type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"orderId"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Quantity    int64     `gorm:"not null" json:"quantity"`
	UnitAmount  int64     `gorm:"not null" json:"unitAmount"`
	AmountTotal int64     `gorm:"not null" json:"amountTotal"`
	Currency    string    `gorm:"type:varchar(10)" json:"currency"`
}

// UpdateStatusRequest is the body of PATCH /orders/:id/status.
type UpdateStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required,order_status"`
}
