package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func newTestProvider(t *testing.T, handler http.HandlerFunc) *StripeProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return NewStripeProviderWithBackend(StripeConfig{
		APIKey:           "sk_test_123",
		WebhookSecret:    testWebhookSecret,
		WebhookTolerance: 5 * time.Minute,
	}, backend)
}

func signedPayload(t *testing.T, payload string, at time.Time) (string, []byte) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: at,
	})
	return signed.Header, signed.Payload
}

func TestCreateCheckoutSession_SendsLineItemsAndMetadata(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "card", r.PostForm.Get("payment_method_types[0]"))
		assert.Equal(t, "Jacket", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "2500", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "2", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "U", r.PostForm.Get("metadata[userId]"))
		assert.Equal(t, "http://localhost:5173/success", r.PostForm.Get("success_url"))
		assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`))
	})

	sess, err := provider.CreateCheckoutSession(context.Background(), CreateSessionInput{
		LineItems:      []LineItemInput{{Name: "Jacket", UnitAmount: 2500, Quantity: 2}},
		Currency:       "usd",
		SuccessURL:     "http://localhost:5173/success",
		CancelURL:      "http://localhost:5173/cancel",
		Metadata:       map[string]string{"userId": "U"},
		IdempotencyKey: "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)
}

func TestCreateCheckoutSession_ProviderError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad currency"}}`))
	})

	_, err := provider.CreateCheckoutSession(context.Background(), CreateSessionInput{Currency: "zzz"})
	assert.Error(t, err)
}

func TestGetCheckoutSession_ExpandsLineItems(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		assert.Contains(t, r.URL.RawQuery, "line_items")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cs_test_1",
			"object": "checkout.session",
			"amount_total": 5000,
			"currency": "usd",
			"customer_details": {"email": "buyer@example.com"},
			"metadata": {"userId": "U"},
			"line_items": {"object": "list", "data": [
				{"id": "li_1", "object": "item", "description": "Jacket", "quantity": 2, "amount_total": 5000, "currency": "usd", "price": {"id": "price_1", "unit_amount": 2500}},
				{"id": "li_2", "object": "item", "quantity": 1, "amount_total": 0, "currency": "usd"}
			]}
		}`))
	})

	sess, err := provider.GetCheckoutSession(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), sess.AmountTotal)
	assert.Equal(t, "buyer@example.com", sess.CustomerEmail)
	assert.Equal(t, "U", sess.Metadata["userId"])
	require.Len(t, sess.LineItems, 2)
	assert.Equal(t, LineItem{Name: "Jacket", Quantity: 2, UnitAmount: 2500, AmountTotal: 5000, Currency: "usd"}, sess.LineItems[0])
	assert.Equal(t, unknownProductName, sess.LineItems[1].Name)
}

func TestConstructEvent_Valid(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})

	header, payload := signedPayload(t, `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","object":"checkout.session"}}}`, time.Now())

	event, err := provider.ConstructEvent(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutSessionCompleted, event.Type)
	assert.Equal(t, "cs_test_1", event.ObjectID)

	var obj map[string]interface{}
	require.NoError(t, json.Unmarshal(event.Raw, &obj))
	assert.Equal(t, "checkout.session", obj["object"])
}

func TestConstructEvent_Rejects(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	body := `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1"}}}`

	_, err := provider.ConstructEvent([]byte(body), "")
	assert.Error(t, err, "missing header")

	header, payload := signedPayload(t, body, time.Now())
	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '
	_, err = provider.ConstructEvent(tampered, header)
	assert.Error(t, err, "tampered body")

	header, payload = signedPayload(t, body, time.Now().Add(-10*time.Minute))
	_, err = provider.ConstructEvent(payload, header)
	assert.Error(t, err, "outside tolerance")

	_, err = provider.ConstructEvent(payload, "t=123,v1=deadbeef")
	assert.Error(t, err, "garbage signature")
}

func TestNewStripeProvider_LeavesGlobalKeyAlone(t *testing.T) {
	previous := stripe.Key
	stripe.Key = ""
	t.Cleanup(func() { stripe.Key = previous })

	provider := NewStripeProvider(StripeConfig{APIKey: "sk_test_scoped", WebhookSecret: testWebhookSecret})

	assert.Empty(t, stripe.Key)
	assert.Equal(t, "sk_test_scoped", provider.sessions.Key)
}
