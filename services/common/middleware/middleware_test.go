package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/dachishengelia/restyle-backend/services/common/logger"
)

type recordedMetric struct {
	name       string
	dimensions map[string]string
}

type mockRecorder struct {
	mu   sync.Mutex
	seen []recordedMetric
	done chan struct{}
}

func (m *mockRecorder) RecordCount(ctx context.Context, name string, dims map[string]string) error {
	m.mu.Lock()
	m.seen = append(m.seen, recordedMetric{name, dims})
	n := len(m.seen)
	m.mu.Unlock()
	if n == 3 {
		close(m.done)
	}
	return nil
}

func (m *mockRecorder) RecordLatency(ctx context.Context, name string, d time.Duration, dims map[string]string) error {
	m.mu.Lock()
	m.seen = append(m.seen, recordedMetric{name, dims})
	m.mu.Unlock()
	return nil
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(t.Context(), 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestRateLimiter_CleanupStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rl := NewRateLimiter(ctx, rate.Every(time.Second), 1, time.Hour)

	cancel()
	select {
	case <-rl.done:
	case <-time.After(time.Second):
		t.Fatal("cleanup goroutine still running after cancel")
	}
}

func TestRateLimiter_EvictsIdleEntries(t *testing.T) {
	rl := NewRateLimiter(t.Context(), rate.Every(time.Second), 1, time.Minute)
	rl.GetLimiter("10.0.0.1")
	rl.GetLimiter("10.0.0.2")
	rl.ips["10.0.0.1"].lastSeen = time.Now().Add(-2 * time.Minute)

	rl.evictIdle(time.Now())

	assert.NotContains(t, rl.ips, "10.0.0.1")
	assert.Contains(t, rl.ips, "10.0.0.2")
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRequestLogger_LevelsAndSkip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)

	r := gin.New()
	r.Use(logger.RequestID(), RequestLogger(zap.New(core), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/health", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "/missing", entries[0].ContextMap()["path"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}

func TestMetricsMiddleware_RecordsServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := &mockRecorder{done: make(chan struct{})}

	r := gin.New()
	r.Use(MetricsMiddleware(rec, "checkout"))
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/abc", nil))

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("metrics were not recorded")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	names := make([]string, 0, len(rec.seen))
	for _, m := range rec.seen {
		names = append(names, m.name)
		assert.Equal(t, "/orders/:id", m.dimensions["Path"])
		assert.Equal(t, "5xx", m.dimensions["Status"])
	}
	assert.Contains(t, names, "HTTP5xxErrors")
}

func TestStatusCodeToRange(t *testing.T) {
	assert.Equal(t, "2xx", statusCodeToRange(201))
	assert.Equal(t, "3xx", statusCodeToRange(302))
	assert.Equal(t, "4xx", statusCodeToRange(404))
	assert.Equal(t, "5xx", statusCodeToRange(503))
	assert.Equal(t, "unknown", statusCodeToRange(100))
}
