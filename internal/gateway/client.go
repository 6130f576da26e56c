package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"tripbroker/pkg/client"
	"tripbroker/pkg/logger"
	"tripbroker/pkg/model"
)

const (
	pathInitiateSession     = "/v2/InitiateSession"
	pathExecutePayment      = "/v2/ExecutePayment"
	pathUpdatePaymentStatus = "/v2/UpdatePaymentStatus"
	pathGetPaymentStatus    = "/v2/GetPaymentStatus"
)

type Config struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// Client talks to the payment gateway. Capture and release are retried with
// exponential backoff; everything else fails fast.
type Client struct {
	http       *client.HttpClient
	log        *logger.Logger
	maxRetries int
	baseDelay  time.Duration
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	return &Client{
		http:       client.NewHttpClient(strings.TrimRight(cfg.BaseURL, "/"), cfg.Timeout).WithBearer(cfg.Token),
		log:        log,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
	}
}

func (c *Client) InitiateSession(ctx context.Context) (*SessionHandle, error) {
	const op = "InitiateSession"

	env, raw, status, err := c.post(ctx, op, pathInitiateSession, struct{}{})
	if err != nil {
		return nil, err
	}

	var data sessionData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &GatewayError{Op: op, StatusCode: status, Message: "malformed session data", Err: err}
		}
	}

	return &SessionHandle{
		SessionID:   data.SessionId,
		CountryCode: data.CountryCode,
		StatusCode:  status,
		Raw:         raw,
	}, nil
}

// ExecutePayment places an authorization hold for invoiceValue. Capture is
// always disabled; the hold is settled later by Capture or Release.
func (c *Client) ExecutePayment(ctx context.Context, sessionID string, invoiceValue float64) (*ExecuteResult, error) {
	const op = "ExecutePayment"

	req := executeRequest{
		SessionId:         sessionID,
		InvoiceValue:      invoiceValue,
		ProcessingDetails: processingDetails{AutoCapture: false},
	}

	env, raw, status, err := c.post(ctx, op, pathExecutePayment, req)
	if err != nil {
		return nil, err
	}

	var data executeData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &GatewayError{Op: op, StatusCode: status, Message: "malformed payment data", Err: err}
		}
	}

	invoiceID := data.InvoiceId.String()
	if invoiceID == "" || invoiceID == "0" {
		return nil, &GatewayError{Op: op, StatusCode: status, Err: ErrMissingInvoiceID}
	}

	c.log.InfoContext(ctx, "Authorization hold placed", "invoice_id", invoiceID, "amount", invoiceValue)

	return &ExecuteResult{
		InvoiceID:  invoiceID,
		PaymentURL: data.PaymentURL,
		Raw:        raw,
	}, nil
}

func (c *Client) Capture(ctx context.Context, key, keyType string, amount float64) (*Ack, error) {
	return c.updateStatus(ctx, OperationCapture, key, keyType, amount)
}

func (c *Client) Release(ctx context.Context, key, keyType string, amount float64) (*Ack, error) {
	return c.updateStatus(ctx, OperationRelease, key, keyType, amount)
}

func (c *Client) updateStatus(ctx context.Context, operation, key, keyType string, amount float64) (*Ack, error) {
	op := "UpdatePaymentStatus/" + operation
	req := updateStatusRequest{
		Operation: operation,
		Amount:    amount,
		Key:       key,
		KeyType:   defaultKeyType(keyType),
	}

	var ack *Ack
	err := c.withRetry(ctx, op, key, func(ctx context.Context) error {
		env, raw, _, err := c.post(ctx, op, pathUpdatePaymentStatus, req)
		if err != nil {
			return err
		}
		ack = &Ack{Message: env.Message, Raw: raw}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.InfoContext(ctx, "Payment status updated", "operation", operation, "key", key, "key_type", req.KeyType, "amount", amount)
	return ack, nil
}

// GetStatus looks a payment up by key. keyType defaults to InvoiceId.
func (c *Client) GetStatus(ctx context.Context, key, keyType string) (*StatusReport, error) {
	const op = "GetPaymentStatus"

	env, raw, status, err := c.post(ctx, op, pathGetPaymentStatus, statusRequest{Key: key, KeyType: defaultKeyType(keyType)})
	if err != nil {
		return nil, err
	}

	var data statusData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, &GatewayError{Op: op, StatusCode: status, Message: "malformed status data", Err: err}
		}
	}

	return &StatusReport{
		InvoiceID:     data.InvoiceId.String(),
		InvoiceStatus: data.InvoiceStatus,
		Raw:           raw,
	}, nil
}

// post sends body and unwraps the gateway envelope. Non-2xx answers and
// IsSuccess=false both become GatewayErrors.
func (c *Client) post(ctx context.Context, op, path string, body any) (*envelope, json.RawMessage, int, error) {
	resp, err := c.http.POST(ctx, path, body)
	if err != nil {
		return nil, nil, 0, &GatewayError{Op: op, Message: "request failed", Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(resp.Body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = client.GetErrorMessage(resp)
		}
		return nil, nil, resp.StatusCode, &GatewayError{
			Op:               op,
			StatusCode:       resp.StatusCode,
			Message:          msg,
			ValidationErrors: env.ValidationErrors,
		}
	}

	if decodeErr != nil {
		return nil, nil, resp.StatusCode, &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}

	if !env.IsSuccess {
		return nil, nil, resp.StatusCode, &GatewayError{
			Op:               op,
			StatusCode:       resp.StatusCode,
			Message:          env.Message,
			ValidationErrors: env.ValidationErrors,
		}
	}

	return &env, json.RawMessage(resp.Body), resp.StatusCode, nil
}

func (c *Client) withRetry(ctx context.Context, op, key string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay << (attempt - 1)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return &GatewayError{Op: op, Message: "retry aborted", Err: errors.Join(err, ctx.Err())}
			case <-timer.C:
			}
		}

		err = fn(ctx)
		if err == nil || !IsRetryable(err) {
			return err
		}

		c.log.WarnContext(ctx, "Gateway call failed, will retry",
			"operation", op,
			"key", key,
			"attempt", attempt+1,
			"max_attempts", c.maxRetries+1,
			"error", err,
		)
	}
	return err
}

func defaultKeyType(keyType string) string {
	if strings.TrimSpace(keyType) == "" {
		return model.KeyTypeInvoiceID
	}
	return keyType
}
