package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	commonerrors "github.com/dachishengelia/restyle-backend/services/common/errors"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/middleware"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/services"
)

type CheckoutController struct {
	checkoutService *services.CheckoutService
}

func NewCheckoutController(checkoutService *services.CheckoutService) *CheckoutController {
	return &CheckoutController{checkoutService: checkoutService}
}

// CreateSession handles POST /checkout/create-session.
func (cc *CheckoutController) CreateSession(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, commonerrors.ErrUnauthorized)
		return
	}

	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, commonerrors.Wrap(commonerrors.ErrInvalidCart, err))
		return
	}

	url, appErr := cc.checkoutService.CreateSession(c.Request.Context(), userID, req.Items, c.GetHeader("Idempotency-Key"))
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	c.JSON(http.StatusOK, models.CreateSessionResponse{URL: url})
}
