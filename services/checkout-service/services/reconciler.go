package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	aws_pkg "github.com/dachishengelia/restyle-backend/pkg/aws"
	commonerrors "github.com/dachishengelia/restyle-backend/services/common/errors"
	"github.com/dachishengelia/restyle-backend/services/common/logger"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/providers"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/repository"
)

const defaultFetchTimeout = 10 * time.Second

// OrderReconciler turns a completed checkout session into exactly one order.
type OrderReconciler struct {
	provider     providers.PaymentProvider
	orders       repository.OrderRepository
	catalog      repository.CatalogRepository
	notifier     Notifier
	metrics      aws_pkg.Recorder
	fetchTimeout time.Duration
}

func NewOrderReconciler(
	provider providers.PaymentProvider,
	orders repository.OrderRepository,
	catalog repository.CatalogRepository,
	notifier Notifier,
	metrics aws_pkg.Recorder,
	fetchTimeout time.Duration,
) *OrderReconciler {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &OrderReconciler{
		provider:     provider,
		orders:       orders,
		catalog:      catalog,
		notifier:     notifier,
		metrics:      metrics,
		fetchTimeout: fetchTimeout,
	}
}

// ReconcileCheckout creates the order for sessionID. It returns a nil order without error when the
// event is acknowledged without creating anything, and duplicate=true when the order already existed.
func (r *OrderReconciler) ReconcileCheckout(ctx context.Context, sessionID string) (*models.Order, bool, *commonerrors.Error) {
	if sessionID == "" {
		logger.Warn(ctx, "Completed checkout event without a session id")
		return nil, false, nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	sess, err := r.provider.GetCheckoutSession(fetchCtx, sessionID)
	cancel()
	if err != nil {
		logger.Error(ctx, "Failed to retrieve checkout session", err, zap.String("session_id", sessionID))
		r.record(ctx, aws_pkg.MetricOrdersFailed)
		return nil, false, nil
	}

	userID := strings.TrimSpace(sess.Metadata[models.MetadataUserIDKey])
	if userID == "" {
		logger.Warn(ctx, "Checkout session has no user id", zap.String("session_id", sessionID))
		return nil, false, commonerrors.ErrUserIDMissing
	}

	existing, err := r.orders.FindBySessionID(ctx, sessionID)
	switch {
	case err == nil:
		logger.Info(ctx, "Order already exists for session", zap.String("session_id", sessionID), zap.String("order_id", existing.ID.String()))
		r.record(ctx, aws_pkg.MetricOrdersDuplicate)
		return existing, true, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		logger.Error(ctx, "Failed to check for existing order", err, zap.String("session_id", sessionID))
		return nil, false, commonerrors.Wrap(commonerrors.ErrDatabaseQuery, err)
	}

	order := buildOrder(sess, userID)
	if err := r.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateSession) {
			logger.Info(ctx, "Concurrent delivery already created the order", zap.String("session_id", sessionID))
			r.record(ctx, aws_pkg.MetricOrdersDuplicate)
			return nil, true, nil
		}
		logger.Error(ctx, "Failed to create order", err, zap.String("session_id", sessionID))
		r.record(ctx, aws_pkg.MetricOrdersFailed)
		return nil, false, commonerrors.Wrap(commonerrors.ErrDatabaseQuery, err)
	}

	logger.Info(ctx, "Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
		zap.Float64("amount", order.Amount),
	)
	r.record(ctx, aws_pkg.MetricOrdersCreated)

	r.attributeSellers(ctx, order, sess)
	r.confirmToBuyer(ctx, order)

	return order, false, nil
}

func buildOrder(sess *providers.CheckoutSession, userID string) *models.Order {
	currency := strings.ToLower(sess.Currency)
	if currency == "" {
		currency = "usd"
	}
	order := &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		SessionID:   sess.ID,
		Amount:      float64(sess.AmountTotal) / 100,
		AmountMinor: sess.AmountTotal,
		Currency:    currency,
		Status:      models.StatusPlaced,
	}
	if sess.CustomerEmail != "" {
		email := sess.CustomerEmail
		order.CustomerEmail = &email
	}
	for _, li := range sess.LineItems {
		itemCurrency := strings.ToLower(li.Currency)
		if itemCurrency == "" {
			itemCurrency = currency
		}
		order.Items = append(order.Items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			Name:        li.Name,
			Quantity:    li.Quantity,
			UnitAmount:  li.UnitAmount,
			AmountTotal: li.AmountTotal,
			Currency:    itemCurrency,
		})
	}
	return order
}

// attributeSellers tells each line item's seller about the purchase. Lookup and publish
// failures only cost that seller's notification.
func (r *OrderReconciler) attributeSellers(ctx context.Context, order *models.Order, sess *providers.CheckoutSession) {
	if r.catalog == nil {
		return
	}
	for _, li := range sess.LineItems {
		product, err := r.catalog.FindProductByName(ctx, li.Name)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				logger.Warn(ctx, "No catalog product for line item", zap.String("name", li.Name), zap.String("order_id", order.ID.String()))
			} else {
				logger.Error(ctx, "Catalog lookup failed", err, zap.String("name", li.Name), zap.String("order_id", order.ID.String()))
			}
			continue
		}
		if product.SellerID == "" {
			logger.Warn(ctx, "Catalog product has no seller", zap.String("product_id", product.ID))
			continue
		}

		r.notify(ctx, models.NotificationEvent{
			EventType: models.EventProductPurchased,
			UserID:    product.SellerID,
			Recipient: product.SellerEmail,
			Data: map[string]interface{}{
				"order_id":     order.ID.String(),
				"product_id":   product.ID,
				"product_name": product.Name,
				"quantity":     li.Quantity,
				"amount":       float64(li.AmountTotal) / 100,
				"currency":     order.Currency,
				"buyer_id":     order.UserID,
			},
		})
	}
}

func (r *OrderReconciler) confirmToBuyer(ctx context.Context, order *models.Order) {
	if order.CustomerEmail == nil {
		return
	}
	r.notify(ctx, models.NotificationEvent{
		EventType: models.EventOrderCreated,
		UserID:    order.UserID,
		Recipient: *order.CustomerEmail,
		Data: map[string]interface{}{
			"order_id":   order.ID.String(),
			"session_id": order.SessionID,
			"amount":     order.Amount,
			"currency":   order.Currency,
			"items":      len(order.Items),
		},
	})
}

func (r *OrderReconciler) notify(ctx context.Context, event models.NotificationEvent) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, event); err != nil {
		logger.Error(ctx, "Failed to publish notification", err,
			zap.String("event_type", event.EventType),
			zap.String("user_id", event.UserID),
		)
	}
}

func (r *OrderReconciler) record(ctx context.Context, metric string) {
	if r.metrics == nil {
		return
	}
	_ = r.metrics.RecordCount(ctx, metric, map[string]string{"Service": "checkout"})
}
