package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	aws_pkg "github.com/dachishengelia/restyle-backend/pkg/aws"
	commonerrors "github.com/dachishengelia/restyle-backend/services/common/errors"
	"github.com/dachishengelia/restyle-backend/services/common/logger"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/repository"
)

const RoleAdmin = "admin"

// OrderService serves order reads and the admin lifecycle transitions.
type OrderService struct {
	orders   repository.OrderRepository
	notifier Notifier
	metrics  aws_pkg.Recorder
}

func NewOrderService(orders repository.OrderRepository, notifier Notifier, metrics aws_pkg.Recorder) *OrderService {
	return &OrderService{orders: orders, notifier: notifier, metrics: metrics}
}

// UpdateStatus moves an order to status. Any state may move to any other state.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, *commonerrors.Error) {
	if !status.IsValid() {
		return nil, commonerrors.ErrInvalidOrderStatus
	}
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, commonerrors.ErrInvalidOrderID
	}

	order, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, commonerrors.ErrOrderNotFound
		}
		logger.Error(ctx, "Failed to update order status", err, zap.String("order_id", orderID), zap.String("status", string(status)))
		return nil, commonerrors.Wrap(commonerrors.ErrDatabaseQuery, err)
	}

	logger.Info(ctx, "Order status updated", zap.String("order_id", orderID), zap.String("status", string(status)))
	if s.metrics != nil {
		_ = s.metrics.RecordCount(ctx, aws_pkg.MetricOrderStatusChanged, map[string]string{"Status": string(status)})
	}
	s.notifyStatus(ctx, order)

	return order, nil
}

func (s *OrderService) notifyStatus(ctx context.Context, order *models.Order) {
	if s.notifier == nil {
		return
	}
	event := models.NotificationEvent{
		EventType: models.StatusEventType(order.Status),
		UserID:    order.UserID,
		Data: map[string]interface{}{
			"order_id": order.ID.String(),
			"status":   string(order.Status),
			"amount":   order.Amount,
			"currency": order.Currency,
		},
	}
	if order.CustomerEmail != nil {
		event.Recipient = *order.CustomerEmail
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		logger.Error(ctx, "Failed to publish order status notification", err, zap.String("order_id", order.ID.String()))
	}
}

// GetOrder returns an order its owner, or any admin, may read.
func (s *OrderService) GetOrder(ctx context.Context, requesterID, role, orderID string) (*models.Order, *commonerrors.Error) {
	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, commonerrors.ErrInvalidOrderID
	}

	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, commonerrors.ErrOrderNotFound
		}
		logger.Error(ctx, "Failed to fetch order", err, zap.String("order_id", orderID))
		return nil, commonerrors.Wrap(commonerrors.ErrDatabaseQuery, err)
	}
	if role != RoleAdmin && order.UserID != requesterID {
		return nil, commonerrors.ErrOrderNotFound
	}
	return order, nil
}

// GetUserOrders retrieves paginated orders for a specific user
func (s *OrderService) GetUserOrders(ctx context.Context, userID string, page, limit int) (*models.OrderResponse, *commonerrors.Error) {
	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		logger.Error(ctx, "Failed to fetch orders for user", err, zap.String("user_id", userID))
		return nil, commonerrors.Wrap(commonerrors.ErrDatabaseQuery, err)
	}
	return newOrderResponse(orders, total, page, limit), nil
}

// GetAllOrders retrieves paginated orders for all users, optionally filtered by status (admin only)
func (s *OrderService) GetAllOrders(ctx context.Context, status models.OrderStatus, page, limit int) (*models.OrderResponse, *commonerrors.Error) {
	if status != "" && !status.IsValid() {
		return nil, commonerrors.ErrInvalidOrderStatus
	}
	orders, total, err := s.orders.FindAll(ctx, status, page, limit)
	if err != nil {
		logger.Error(ctx, "Failed to fetch all orders", err)
		return nil, commonerrors.Wrap(commonerrors.ErrDatabaseQuery, err)
	}
	return newOrderResponse(orders, total, page, limit), nil
}

func newOrderResponse(orders []models.Order, total int64, page, limit int) *models.OrderResponse {
	if orders == nil {
		orders = []models.Order{}
	}
	return &models.OrderResponse{
		Orders: orders,
		Meta: models.MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  calculateTotalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
