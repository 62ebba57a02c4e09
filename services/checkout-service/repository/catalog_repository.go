package repository

import (
	"context"
	"errors"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
)

var ErrProductNotFound = errors.New("product not found")

// CatalogRepository is the read-only view of the product catalog used for seller attribution.
type CatalogRepository interface {
	FindProductByName(ctx context.Context, name string) (*models.Product, error)
}
