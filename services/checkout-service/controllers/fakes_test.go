package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
	"gorm.io/gorm"

	commonerrors "github.com/dachishengelia/restyle-backend/services/common/errors"

	"github.com/dachishengelia/restyle-backend/services/checkout-service/controllers"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/middleware"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/models"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/providers"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/repository"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/routes"
	"github.com/dachishengelia/restyle-backend/services/checkout-service/services"
)

const (
	testWebhookSecret = "whsec_controller_test"
	testGatewaySecret = "gw_controller_test"
)

// testProvider verifies webhooks with the real Stripe code and serves sessions from memory.
type testProvider struct {
	*providers.StripeProvider

	mu        sync.Mutex
	createIn  providers.CreateSessionInput
	createErr error
	sessions  map[string]*providers.CheckoutSession
}

func newTestProvider() *testProvider {
	return &testProvider{
		StripeProvider: providers.NewStripeProviderWithBackend(providers.StripeConfig{
			APIKey:           "sk_test_controller",
			WebhookSecret:    testWebhookSecret,
			WebhookTolerance: 5 * time.Minute,
		}, nil),
		sessions: make(map[string]*providers.CheckoutSession),
	}
}

func (p *testProvider) CreateCheckoutSession(_ context.Context, in providers.CreateSessionInput) (*providers.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createIn = in
	if p.createErr != nil {
		return nil, p.createErr
	}
	return &providers.CheckoutSession{ID: "cs_test_new", URL: "https://checkout.stripe.com/c/pay/cs_test_new"}, nil
}

func (p *testProvider) GetCheckoutSession(_ context.Context, id string) (*providers.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	if !ok {
		return nil, errors.New("no such checkout.session")
	}
	return s, nil
}

type memOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
}

func newMemOrders() *memOrders {
	return &memOrders{orders: make(map[uuid.UUID]*models.Order)}
}

func (r *memOrders) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.SessionID == order.SessionID {
			return repository.ErrDuplicateSession
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memOrders) FindBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.SessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrders) FindByUserID(_ context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	return r.filter(func(o *models.Order) bool { return o.UserID == userID }, page, limit)
}

func (r *memOrders) FindAll(_ context.Context, status models.OrderStatus, page, limit int) ([]models.Order, int64, error) {
	return r.filter(func(o *models.Order) bool { return status == "" || o.Status == status }, page, limit)
}

func (r *memOrders) UpdateStatus(_ context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	o.Status = status
	cp := *o
	return &cp, nil
}

func (r *memOrders) filter(keep func(*models.Order) bool, page, limit int) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Order
	for _, o := range r.orders {
		if keep(o) {
			all = append(all, *o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return []models.Order{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *memOrders) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *memOrders) only(t *testing.T) models.Order {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.orders, 1)
	for _, o := range r.orders {
		return *o
	}
	return models.Order{}
}

type noCatalog struct{}

func (noCatalog) FindProductByName(context.Context, string) (*models.Product, error) {
	return nil, repository.ErrProductNotFound
}

type testServer struct {
	router   *gin.Engine
	provider *testProvider
	orders   *memOrders
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, controllers.RegisterValidators())

	provider := newTestProvider()
	orders := newMemOrders()
	notifier := services.NewEventNotifier(nil, "")

	checkoutService := services.NewCheckoutService(provider, services.CheckoutConfig{
		Currency:    "usd",
		FrontendURL: "http://localhost:5173",
		SuccessPath: "/success",
		CancelPath:  "/cancel",
	})
	reconciler := services.NewOrderReconciler(provider, orders, noCatalog{}, notifier, nil, time.Second)

	r := gin.New()
	r.Use(commonerrors.ErrorMiddleware())
	routes.RegisterCheckoutRoutes(t.Context(), r, routes.Controllers{
		Checkout: controllers.NewCheckoutController(checkoutService),
		Webhook:  controllers.NewWebhookController(services.NewWebhookService(provider, reconciler, nil)),
		Order:    controllers.NewOrderController(services.NewOrderService(orders, notifier, nil)),
	}, routes.Options{CheckoutRatePerMinute: 1000, GatewaySecret: testGatewaySecret})

	return &testServer{router: r, provider: provider, orders: orders}
}

// caller is an identity forwarded by the gateway. forged callers omit the gateway secret.
type caller struct {
	userID string
	role   string
	forged bool
}

var (
	buyer = caller{userID: "user-1", role: "user"}
	admin = caller{userID: "admin-1", role: "admin"}
)

func (s *testServer) do(method, path string, as *caller, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("X-User-ID", as.userID)
		req.Header.Set("X-User-Role", as.role)
		if !as.forged {
			req.Header.Set(middleware.GatewaySecretHeader, testGatewaySecret)
		}
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) deliver(header string, payload []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/checkout/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func signEvent(payload string) (string, []byte) {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Header, signed.Payload
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
