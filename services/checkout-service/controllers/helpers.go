package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	commonerrors "github.com/dachishengelia/restyle-backend/services/common/errors"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
)

const (
	MaxPageSize     = 100
	defaultPage     = 1
	defaultPageSize = 10
)

// RegisterValidators adds the order_status tag to gin's validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		return models.OrderStatus(fl.Field().String()).IsValid()
	})
}

// respondError writes {"error": message}. The wrapped cause is attached to the gin context
// for the request logger and never sent to the client.
func respondError(c *gin.Context, appErr *commonerrors.Error) {
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
}

// parsePaginationParams extracts and validates pagination parameters
func parsePaginationParams(c *gin.Context) (int, int) {
	page, limit := defaultPage, defaultPageSize

	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limit = l
		if limit > MaxPageSize {
			limit = MaxPageSize
		}
	}
	return page, limit
}
