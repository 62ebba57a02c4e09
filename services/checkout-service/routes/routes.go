package routes

import (
	"context"

	"github.com/gin-gonic/gin"

	commonmw "github.com/dachishengelia/restyle-backend/services/common/middleware"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/controllers"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/middleware"
)

type Controllers struct {
	Checkout *controllers.CheckoutController
	Webhook  *controllers.WebhookController
	Order    *controllers.OrderController
}

type Options struct {
	CheckoutRatePerMinute int
	// GatewaySecret enables trust of the gateway's X-User-* headers. Empty means tokens only.
	GatewaySecret string
}

// RegisterCheckoutRoutes sets up checkout, webhook and order routes. Background work started
// here stops when ctx is cancelled.
func RegisterCheckoutRoutes(ctx context.Context, r *gin.Engine, ctl Controllers, opts Options) {
	authn := middleware.AuthMiddleware(opts.GatewaySecret)

	checkout := r.Group("/checkout")
	// Signed by Stripe, no user auth.
	checkout.POST("/webhook", ctl.Webhook.StripeWebhook)
	checkout.POST("/create-session",
		authn,
		commonmw.RateLimitMiddleware(ctx, opts.CheckoutRatePerMinute),
		ctl.Checkout.CreateSession,
	)

	orders := r.Group("/orders")
	orders.Use(authn)
	orders.GET("", ctl.Order.GetOrders)
	orders.GET("/:id", ctl.Order.GetOrderByID)
	orders.PATCH("/:id/status", middleware.AdminOnly(), ctl.Order.UpdateStatus)

	admin := r.Group("/admin")
	admin.Use(authn, middleware.AdminOnly())
	admin.GET("/orders", ctl.Order.GetAllOrders)
}
