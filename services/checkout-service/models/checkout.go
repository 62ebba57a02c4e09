package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MetadataUserIDKey correlates a checkout session with the buyer who created it.
const MetadataUserIDKey = "userId"

// Quantity accepts JSON numbers (truncated toward zero) and numeric strings.
type Quantity int64

func (q *Quantity) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*q = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("quantity %s is not a number", string(data))
	}
	*q = Quantity(math.Trunc(f))
	return nil
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(q))
}

// CheckoutItem is one cart entry as submitted by the client. Price is in major units.
type CheckoutItem struct {
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Quantity Quantity `json:"quantity"`
}

// UnitAmount is the price in minor units, rounded half away from zero.
func (i CheckoutItem) UnitAmount() int64 {
	return int64(math.Round(i.Price * 100))
}

// Validate reports the first problem with the item, if any.
func (i CheckoutItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if math.IsNaN(i.Price) || math.IsInf(i.Price, 0) || i.Price <= 0 {
		return fmt.Errorf("price must be a positive number")
	}
	if i.UnitAmount() < 1 {
		return fmt.Errorf("price must be at least 0.01")
	}
	if i.Quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	return nil
}

type CreateSessionRequest struct {
	Items []CheckoutItem `json:"items" binding:"required"`
}

type CreateSessionResponse struct {
	URL string `json:"url"`
}
