package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	commonerrors "github.com/dachishengelia/restyle-backend/services/common/errors"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/middleware"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/services"
)

type OrderController struct {
	orderService *services.OrderService
}

func NewOrderController(orderService *services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// UpdateStatus handles PATCH /orders/:id/status (admin only).
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, commonerrors.Wrap(commonerrors.ErrInvalidOrderStatus, err))
		return
	}

	order, appErr := oc.orderService.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetOrders returns paginated orders for the authenticated user
func (oc *OrderController) GetOrders(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, commonerrors.ErrUnauthorized)
		return
	}

	page, limit := parsePaginationParams(c)
	result, appErr := oc.orderService.GetUserOrders(c.Request.Context(), userID, page, limit)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetOrderByID returns one order to its owner or to an admin.
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, commonerrors.ErrUnauthorized)
		return
	}

	order, appErr := oc.orderService.GetOrder(c.Request.Context(), userID, middleware.GetRole(c), c.Param("id"))
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetAllOrders returns paginated orders for all users (admin only)
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	page, limit := parsePaginationParams(c)
	status := models.OrderStatus(c.Query("status"))

	result, appErr := oc.orderService.GetAllOrders(c.Request.Context(), status, page, limit)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	c.JSON(http.StatusOK, result)
}
