package service

import (
	"encoding/json"

	"tripbroker/pkg/model"
)

type ExecutePaymentRequest struct {
	SessionID    string                 `json:"sessionId" validate:"required"`
	InvoiceValue float64                `json:"invoiceValue" validate:"required,gt=0"`
	FlightData   json.RawMessage        `json:"flightData" validate:"required"`
	Travelers    []model.TravelerRecord `json:"travelers" validate:"required,min=1,dive"`
}

type ExecutePaymentResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"paymentUrl"`
	InvoiceID  string `json:"invoiceId"`
}

type InitiateSessionResponse struct {
	Data   json.RawMessage `json:"data"`
	Status int             `json:"status"`
}

type PaymentStatusRequest struct {
	Key     string `json:"key" validate:"required"`
	KeyType string `json:"keyType" validate:"omitempty,oneof=InvoiceId PaymentId"`
}

// UpdatePaymentRequest drives a manual capture or release. A zero Amount
// settles the full authorized amount.
type UpdatePaymentRequest struct {
	Key     string  `json:"Key" validate:"required"`
	KeyType string  `json:"KeyType" validate:"omitempty,oneof=InvoiceId PaymentId"`
	Amount  float64 `json:"Amount" validate:"gte=0"`
}
