package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	commonerrors "github.com/dachishengelia/restyle-backend/services/common/errors"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/services"
)

// MaxWebhookBodyBytes bounds the raw event body read for verification.
const MaxWebhookBodyBytes = 64 << 10

type WebhookController struct {
	webhookService *services.WebhookService
}

func NewWebhookController(webhookService *services.WebhookService) *WebhookController {
	return &WebhookController{webhookService: webhookService}
}

// StripeWebhook handles POST /checkout/webhook. The body is read raw because the signature
// covers the exact bytes Stripe sent.
func (wc *WebhookController) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, commonerrors.New(http.StatusBadRequest, "Invalid webhook payload", err))
		return
	}

	if appErr := wc.webhookService.Handle(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); appErr != nil {
		respondError(c, appErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
