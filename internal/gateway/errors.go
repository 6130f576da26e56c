package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrMissingInvoiceID = errors.New("gateway returned no invoice id")

// GatewayError is every failure the client returns. StatusCode is 0 when
// the request never got an HTTP answer.
type GatewayError struct {
	Op               string
	StatusCode       int
	Message          string
	ValidationErrors []ValidationError
	Err              error
}

func (e *GatewayError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "gateway %s", e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	for _, v := range e.ValidationErrors {
		fmt.Fprintf(&b, "; %s: %s", v.Name, v.Error)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Retryable is true for transport faults, 408, 429 and 5xx answers.
func (e *GatewayError) Retryable() bool {
	if errors.Is(e.Err, ErrMissingInvoiceID) {
		return false
	}
	switch e.StatusCode {
	case 0, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}

// IsRetryable reports whether err is a GatewayError worth another attempt.
func IsRetryable(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr) && gwErr.Retryable()
}
