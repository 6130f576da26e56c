package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripbroker/pkg/client"
	"tripbroker/pkg/config"
	"tripbroker/pkg/logger"
)

type routes map[string]httprouter.Handle

func (r routes) RegisterRoutes(router *httprouter.Router) {
	for path, h := range r {
		method, p, _ := strings.Cut(path, " ")
		router.Handle(method, p, h)
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Port:              "0",
		RequestTimeout:    time.Second,
		IdempotencyTTL:    time.Minute,
		MaxRequestSize:    64,
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
		ReadTimeout:       time.Second,
		WriteTimeout:      time.Second,
		IdleTimeout:       time.Second,
		ShutdownTimeout:   time.Second,
		Log:               logger.Discard(),
		Client:            client.NewClient(),
	}
}

type longRunningRoutes struct {
	routes
	untimed []string
}

func (r longRunningRoutes) UntimedRoutes() []string { return r.untimed }

func ok(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func newTestApp(t *testing.T) *Application {
	t.Helper()
	a := NewApplication(testConfig())
	a.SetApp(
		routes{"POST /payment/paymentWebhook": ok},
		routes{"GET /health": ok, "GET /ready": ok},
	)
	return a
}

func stopWorkers(t *testing.T, a *Application) {
	t.Cleanup(func() {
		a.idempotencyStore.Stop()
		a.rateLimiter.Stop()
	})
}

func TestApplication_HealthBypassesRateLimit(t *testing.T) {
	a := newTestApp(t)
	stopWorkers(t, a)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestApplication_AppRoutesAreRateLimited(t *testing.T) {
	a := newTestApp(t)
	stopWorkers(t, a)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/payment/paymentWebhook", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestApplication_RejectsNonJSONBody(t *testing.T) {
	a := newTestApp(t)
	stopWorkers(t, a)

	req := httptest.NewRequest(http.MethodPost, "/payment/paymentWebhook", strings.NewReader("x=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestApplication_WebhookOutlivesRequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 20 * time.Millisecond

	slow := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		time.Sleep(60 * time.Millisecond)
		ok(w, r, ps)
	}
	a := NewApplication(cfg)
	a.SetApp(
		longRunningRoutes{
			routes:  routes{"POST /payment/paymentWebhook": slow, "POST /payment/captureAmount": slow},
			untimed: []string{"/payment/paymentWebhook"},
		},
		routes{"GET /health": ok, "GET /ready": ok},
	)
	stopWorkers(t, a)

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("/payment/paymentWebhook"))
	assert.Equal(t, http.StatusServiceUnavailable, send("/payment/captureAmount"))
}

func TestApplication_ShutdownRunsClosersInOrder(t *testing.T) {
	a := newTestApp(t)

	var order []string
	a.OnShutdown("first", func() error { order = append(order, "first"); return errors.New("boom") })
	a.OnShutdown("second", func() error { order = append(order, "second"); return nil })

	a.gracefulShutdown()
	require.Equal(t, []string{"first", "second"}, order)
}
