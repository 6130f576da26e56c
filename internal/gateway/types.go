package gateway

import (
	"encoding/json"

	"tripbroker/pkg/model"
)

// envelope is the wrapper the gateway puts around every response.
type envelope struct {
	IsSuccess        bool              `json:"IsSuccess"`
	Message          string            `json:"Message"`
	ValidationErrors []ValidationError `json:"ValidationErrors"`
	Data             json.RawMessage   `json:"Data"`
}

type ValidationError struct {
	Name  string `json:"Name"`
	Error string `json:"Error"`
}

type SessionHandle struct {
	SessionID   string
	CountryCode string
	StatusCode  int
	// Raw is the provider's full response body.
	Raw json.RawMessage
}

type ExecuteResult struct {
	InvoiceID  string
	PaymentURL string
	Raw        json.RawMessage
}

type Ack struct {
	Message string
	Raw     json.RawMessage
}

type StatusReport struct {
	InvoiceID     string
	InvoiceStatus string
	Raw           json.RawMessage
}

type sessionData struct {
	SessionId   string `json:"SessionId"`
	CountryCode string `json:"CountryCode"`
}

type executeRequest struct {
	SessionId         string            `json:"SessionId"`
	InvoiceValue      float64           `json:"InvoiceValue"`
	ProcessingDetails processingDetails `json:"ProcessingDetails"`
}

type processingDetails struct {
	AutoCapture bool `json:"AutoCapture"`
}

type executeData struct {
	InvoiceId  model.FlexString `json:"InvoiceId"`
	PaymentURL string           `json:"PaymentURL"`
}

const (
	OperationCapture = "capture"
	OperationRelease = "release"
)

type updateStatusRequest struct {
	Operation string  `json:"Operation"`
	Amount    float64 `json:"Amount,omitempty"`
	Key       string  `json:"Key"`
	KeyType   string  `json:"KeyType"`
}

type statusRequest struct {
	Key     string `json:"Key"`
	KeyType string `json:"KeyType"`
}

type statusData struct {
	InvoiceId     model.FlexString `json:"InvoiceId"`
	InvoiceStatus string           `json:"InvoiceStatus"`
}
