package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	commonerrors "github.com/dachishengelia/restyle-backend/services/common/errors"
	"github.com/dachishengelia/restyle-backend/services/common/logger"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/providers"
)

type CheckoutConfig struct {
	Currency    string
	FrontendURL string
	SuccessPath string
	CancelPath  string
}

// CheckoutService turns a cart into a hosted checkout session. It never touches order storage.
type CheckoutService struct {
	provider   providers.PaymentProvider
	currency   string
	successURL string
	cancelURL  string
}

func NewCheckoutService(provider providers.PaymentProvider, cfg CheckoutConfig) *CheckoutService {
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = "usd"
	}
	base := strings.TrimSuffix(cfg.FrontendURL, "/")
	return &CheckoutService{
		provider:   provider,
		currency:   currency,
		successURL: base + cfg.SuccessPath,
		cancelURL:  base + cfg.CancelPath,
	}
}

// CreateSession validates the cart and returns the hosted checkout URL.
func (s *CheckoutService) CreateSession(ctx context.Context, userID string, items []models.CheckoutItem, idempotencyKey string) (string, *commonerrors.Error) {
	if strings.TrimSpace(userID) == "" {
		return "", commonerrors.ErrUnauthorized
	}
	if len(items) == 0 {
		return "", commonerrors.New(commonerrors.ErrInvalidCart.Code, "At least one item is required", nil)
	}

	lineItems := make([]providers.LineItemInput, 0, len(items))
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return "", commonerrors.New(commonerrors.ErrInvalidCart.Code,
				fmt.Sprintf("%s: item %d: %v", commonerrors.ErrInvalidCart.Message, i, err), nil)
		}
		lineItems = append(lineItems, providers.LineItemInput{
			Name:       strings.TrimSpace(item.Name),
			UnitAmount: item.UnitAmount(),
			Quantity:   int64(item.Quantity),
		})
	}

	sess, err := s.provider.CreateCheckoutSession(ctx, providers.CreateSessionInput{
		LineItems:      lineItems,
		Currency:       s.currency,
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
		Metadata:       map[string]string{models.MetadataUserIDKey: userID},
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		logger.Error(ctx, "Failed to create checkout session", err, zap.String("user_id", userID), zap.Int("items", len(items)))
		return "", commonerrors.Wrap(commonerrors.ErrPaymentProvider, err)
	}

	logger.Info(ctx, "Checkout session created", zap.String("session_id", sess.ID), zap.String("user_id", userID))
	return sess.URL, nil
}
