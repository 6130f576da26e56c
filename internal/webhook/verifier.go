// Package webhook authenticates payment gateway notifications.
//
// The gateway signs a fixed list of fields, not the raw body:
//
//	Invoice.Id=<v>,Invoice.Status=<v>,Transaction.Status=<v>,Transaction.PaymentId=<v>,Invoice.ExternalIdentifier=<v>
//
// The HMAC-SHA256 of that string under the shared secret is sent base64
// (standard alphabet) in the MyFatoorah-Signature header. No other scheme
// is accepted.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"tripbroker/pkg/model"
)

const SignatureHeader = "MyFatoorah-Signature"

// SignedFields are the values covered by the signature, in signing order.
type SignedFields struct {
	InvoiceID          string
	InvoiceStatus      string
	TransactionStatus  string
	PaymentID          string
	ExternalIdentifier string
}

func FieldsFromEvent(event *model.WebhookEvent) SignedFields {
	return SignedFields{
		InvoiceID:          event.Data.Invoice.Id.String(),
		InvoiceStatus:      event.Data.Invoice.Status,
		TransactionStatus:  event.Data.Transaction.Status,
		PaymentID:          event.Data.Transaction.PaymentId.String(),
		ExternalIdentifier: event.Data.Invoice.ExternalIdentifier.String(),
	}
}

func Canonicalize(f SignedFields) string {
	pairs := []string{
		"Invoice.Id=" + f.InvoiceID,
		"Invoice.Status=" + f.InvoiceStatus,
		"Transaction.Status=" + f.TransactionStatus,
		"Transaction.PaymentId=" + f.PaymentID,
		"Invoice.ExternalIdentifier=" + f.ExternalIdentifier,
	}
	return strings.Join(pairs, ",")
}

func Sign(f SignedFields, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Canonicalize(f)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the fields under secret. An empty
// signature or secret never verifies.
func Verify(f SignedFields, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(f, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
