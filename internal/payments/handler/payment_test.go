package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tripbroker/internal/bookingsvc"
	"tripbroker/internal/gateway"
	"tripbroker/internal/payments/service"
	"tripbroker/internal/payments/validator"
	"tripbroker/internal/pendingbookings/repository"
	"tripbroker/internal/saga"
	"tripbroker/internal/webhook"
	"tripbroker/pkg/logger"
	"tripbroker/pkg/middleware"
	"tripbroker/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "shared-webhook-secret"

type stubGateway struct {
	mu       sync.Mutex
	captures int
	releases int
}

func (g *stubGateway) InitiateSession(context.Context) (*gateway.SessionHandle, error) {
	return &gateway.SessionHandle{
		SessionID:  "sess-1",
		StatusCode: http.StatusOK,
		Raw:        json.RawMessage(`{"IsSuccess":true,"Data":{"SessionId":"sess-1"}}`),
	}, nil
}

func (g *stubGateway) ExecutePayment(context.Context, string, float64) (*gateway.ExecuteResult, error) {
	return &gateway.ExecuteResult{InvoiceID: "INV-1001", PaymentURL: "https://pay.example/INV-1001"}, nil
}

func (g *stubGateway) GetStatus(_ context.Context, key, keyType string) (*gateway.StatusReport, error) {
	return &gateway.StatusReport{Raw: json.RawMessage(`{"Key":"` + key + `","KeyType":"` + keyType + `"}`)}, nil
}

func (g *stubGateway) Capture(context.Context, string, string, float64) (*gateway.Ack, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captures++
	return &gateway.Ack{Raw: json.RawMessage(`{"IsSuccess":true}`)}, nil
}

func (g *stubGateway) Release(context.Context, string, string, float64) (*gateway.Ack, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releases++
	return &gateway.Ack{Raw: json.RawMessage(`{"IsSuccess":true}`)}, nil
}

type stubBooking struct {
	mu     sync.Mutex
	status int
	calls  int
	delay  time.Duration
}

func (b *stubBooking) Book(context.Context, *model.FlightBookingRequest) (*bookingsvc.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	time.Sleep(b.delay)
	if b.status != http.StatusCreated {
		return &bookingsvc.Result{StatusCode: b.status}, &bookingsvc.BookingServiceFailure{StatusCode: b.status, Err: bookingsvc.ErrBookingFailed}
	}
	return &bookingsvc.Result{StatusCode: b.status}, nil
}

type server struct {
	router  *httprouter.Router
	gateway *stubGateway
	booking *stubBooking
	repo    repository.PendingBookingRepository
}

func newServer(t *testing.T, bookingStatus int) *server {
	t.Helper()
	log := logger.Discard()
	s := &server{
		router:  httprouter.New(),
		gateway: &stubGateway{},
		booking: &stubBooking{status: bookingStatus},
		repo:    repository.NewMemoryPendingBookingRepository(time.Hour),
	}
	coord := saga.NewCoordinator(s.repo, s.gateway, s.booking, nil, nil, saga.Config{StepTimeout: time.Second}, log)
	svc := service.NewPaymentService(s.gateway, s.repo, coord, validator.NewPaymentValidator(log), service.Config{WebhookSecret: testSecret}, log)
	NewPaymentHandler(svc, log).RegisterRoutes(s.router)
	NewHealthHandler(pingerFunc(func(context.Context) error { return nil }), svc, "memory", log).RegisterRoutes(s.router)
	return s
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func (s *server) do(t *testing.T, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *server) executePayment(t *testing.T) {
	t.Helper()
	body := []byte(`{
		"sessionId": "sess-1",
		"invoiceValue": 120,
		"flightData": {"id": "offer-1"},
		"travelers": [{"firstName": "Sara", "lastName": "Ali", "gender": "F", "phone": "99887766", "dateOfBirth": "1990-05-01"}]
	}`)
	rec := s.do(t, http.MethodPost, "/payment/execute-payment", body, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"paymentUrl":"https://pay.example/INV-1001","invoiceId":"INV-1001"}`, rec.Body.String())
}

func webhookBody(t *testing.T, invoiceID, status string) ([]byte, string) {
	t.Helper()
	var evt model.WebhookEvent
	evt.Data.Invoice.Id = model.FlexString(invoiceID)
	evt.Data.Invoice.Status = "Pending"
	evt.Data.Transaction.Status = status
	evt.Data.Transaction.PaymentId = "07071234"
	body, err := json.Marshal(evt)
	require.NoError(t, err)
	return body, webhook.Sign(webhook.FieldsFromEvent(&evt), testSecret)
}

func (s *server) pendingCount(t *testing.T) int64 {
	t.Helper()
	count, err := s.repo.Count(context.Background())
	require.NoError(t, err)
	return count
}

func TestInitiateSession(t *testing.T) {
	s := newServer(t, http.StatusCreated)

	rec := s.do(t, http.MethodPost, "/payment/initiateSession", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"IsSuccess":true,"Data":{"SessionId":"sess-1"}},"status":200}`, rec.Body.String())
}

func TestExecutePayment_MissingField(t *testing.T) {
	s := newServer(t, http.StatusCreated)

	rec := s.do(t, http.MethodPost, "/payment/execute-payment", []byte(`{"sessionId":"sess-1"}`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/payment/execute-payment", []byte(`{`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentStatus_PassesProviderPayload(t *testing.T) {
	s := newServer(t, http.StatusCreated)

	rec := s.do(t, http.MethodPost, "/payment/paymentStatus", []byte(`{"key":"1001"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Key":"1001","KeyType":""}`, rec.Body.String())
}

func TestCaptureAndReleaseAmount(t *testing.T) {
	s := newServer(t, http.StatusCreated)

	rec := s.do(t, http.MethodPost, "/payment/captureAmount", []byte(`{"Key":"INV-1","KeyType":"InvoiceId"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/payment/releaseAmount", []byte(`{"Key":"INV-2","KeyType":"InvoiceId","Amount":5}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, s.gateway.captures)
	assert.Equal(t, 1, s.gateway.releases)
}

func TestWebhook_BookingCreatedCaptures(t *testing.T) {
	s := newServer(t, http.StatusCreated)
	s.executePayment(t)

	body, sig := webhookBody(t, "INV-1001", "AUTHORIZE")
	rec := s.do(t, http.MethodPost, "/payment/paymentWebhook", body, map[string]string{webhook.SignatureHeader: sig})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Webhook processed"}`, rec.Body.String())
	assert.Equal(t, 1, s.booking.calls)
	assert.Equal(t, 1, s.gateway.captures)
	assert.Zero(t, s.gateway.releases)
	assert.Zero(t, s.pendingCount(t))
}

func TestWebhook_SlowBookingStillReportsCapture(t *testing.T) {
	s := newServer(t, http.StatusCreated)
	s.booking.delay = 80 * time.Millisecond
	s.executePayment(t)

	timed := middleware.RequestTimeout(20*time.Millisecond, (&PaymentHandler{}).UntimedRoutes()...)(s.router)

	body, sig := webhookBody(t, "INV-1001", "AUTHORIZE")
	req := httptest.NewRequest(http.MethodPost, WebhookPath, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.SignatureHeader, sig)
	rec := httptest.NewRecorder()
	timed.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"Webhook processed"}`, rec.Body.String())
	assert.Equal(t, 1, s.gateway.captures)
	assert.Zero(t, s.gateway.releases)
}

func TestWebhook_BookingFailureReleases(t *testing.T) {
	s := newServer(t, http.StatusInternalServerError)
	s.executePayment(t)

	body, sig := webhookBody(t, "INV-1001", "AUTHORIZE")
	rec := s.do(t, http.MethodPost, "/payment/paymentWebhook", body, map[string]string{webhook.SignatureHeader: sig})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, s.gateway.captures)
	assert.Equal(t, 1, s.gateway.releases)
	assert.Zero(t, s.pendingCount(t))
}

func TestWebhook_FailedTransactionIgnored(t *testing.T) {
	s := newServer(t, http.StatusCreated)
	s.executePayment(t)

	body, sig := webhookBody(t, "INV-1001", "Failed")
	rec := s.do(t, http.MethodPost, "/payment/paymentWebhook", body, map[string]string{webhook.SignatureHeader: sig})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, s.booking.calls)
	assert.Zero(t, s.gateway.captures)
	assert.Zero(t, s.gateway.releases)
	assert.Zero(t, s.pendingCount(t))
}

func TestWebhook_StatusCodes(t *testing.T) {
	s := newServer(t, http.StatusCreated)
	s.executePayment(t)
	body, sig := webhookBody(t, "INV-1001", "AUTHORIZE")
	unknown, unknownSig := webhookBody(t, "INV-404", "AUTHORIZE")

	tests := []struct {
		name   string
		body   []byte
		sig    string
		status int
	}{
		{name: "missing signature", body: body, sig: "", status: http.StatusBadRequest},
		{name: "malformed body", body: []byte(`{"Data":`), sig: sig, status: http.StatusBadRequest},
		{name: "signature mismatch", body: body, sig: "x" + sig, status: http.StatusUnauthorized},
		{name: "unknown invoice", body: unknown, sig: unknownSig, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.sig != "" {
				headers[webhook.SignatureHeader] = tt.sig
			}
			rec := s.do(t, http.MethodPost, "/payment/paymentWebhook", tt.body, headers)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	assert.Zero(t, s.booking.calls)
	assert.Equal(t, int64(1), s.pendingCount(t))
}

func TestWebhook_DuplicateDeliveries(t *testing.T) {
	s := newServer(t, http.StatusCreated)
	s.executePayment(t)
	body, sig := webhookBody(t, "INV-1001", "AUTHORIZE")

	const deliveries = 8
	codes := make([]int, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := s.do(t, http.MethodPost, "/payment/paymentWebhook", body, map[string]string{webhook.SignatureHeader: sig})
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	var ok, notFound int
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusNotFound:
			notFound++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, deliveries-1, notFound)
	assert.Equal(t, 1, s.booking.calls)
	assert.Equal(t, 1, s.gateway.captures+s.gateway.releases)
}

func TestHealthAndReady(t *testing.T) {
	s := newServer(t, http.StatusCreated)
	s.executePayment(t)

	rec := s.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/ready", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","store":"memory","pending_bookings":1}`, rec.Body.String())
}

func TestReady_StoreDown(t *testing.T) {
	router := httprouter.New()
	down := pingerFunc(func(context.Context) error { return context.DeadlineExceeded })
	NewHealthHandler(down, nil, "mongo", logger.Discard()).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","store":"error"}`, rec.Body.String())
}
