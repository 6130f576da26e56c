package model

import (
	"encoding/json"
	"strings"
)

// WebhookEvent is the payment gateway's transaction-status notification.
type WebhookEvent struct {
	Event WebhookEventInfo `json:"Event"`
	Data  WebhookData      `json:"Data"`
}

type WebhookEventInfo struct {
	Code           json.Number `json:"Code,omitempty"`
	Name           string      `json:"Name,omitempty"`
	CountryIsoCode string      `json:"CountryIsoCode,omitempty"`
	CreationDate   string      `json:"CreationDate,omitempty"`
	Reference      string      `json:"Reference,omitempty"`
}

type WebhookData struct {
	Invoice     WebhookInvoice     `json:"Invoice"`
	Transaction WebhookTransaction `json:"Transaction"`
}

type WebhookInvoice struct {
	Id                 FlexString `json:"Id"`
	Status             string     `json:"Status"`
	ExternalIdentifier FlexString `json:"ExternalIdentifier"`
}

type WebhookTransaction struct {
	Status    string     `json:"Status"`
	PaymentId FlexString `json:"PaymentId"`
}

func (e *WebhookEvent) InvoiceID() string {
	return strings.TrimSpace(e.Data.Invoice.Id.String())
}

func (e *WebhookEvent) TransactionStatus() string {
	return strings.TrimSpace(e.Data.Transaction.Status)
}

// IsAuthorized reports whether the transaction status confirms the hold.
func (e *WebhookEvent) IsAuthorized() bool {
	switch strings.ToUpper(e.TransactionStatus()) {
	case TransactionStatusAuthorize, TransactionStatusAuthorized:
		return true
	}
	return false
}

const (
	TransactionStatusAuthorize  = "AUTHORIZE"
	TransactionStatusAuthorized = "AUTHORIZED"
)
