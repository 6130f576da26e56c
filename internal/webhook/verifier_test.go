package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"testing"

	"tripbroker/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test_0123456789"

func sampleFields() SignedFields {
	return SignedFields{
		InvoiceID:          "INV-1001",
		InvoiceStatus:      "PENDING",
		TransactionStatus:  "AUTHORIZE",
		PaymentID:          "07071234567",
		ExternalIdentifier: "ext-42",
	}
}

func TestCanonicalize(t *testing.T) {
	got := Canonicalize(sampleFields())
	want := "Invoice.Id=INV-1001,Invoice.Status=PENDING,Transaction.Status=AUTHORIZE,Transaction.PaymentId=07071234567,Invoice.ExternalIdentifier=ext-42"
	assert.Equal(t, want, got)

	assert.Equal(t,
		"Invoice.Id=,Invoice.Status=,Transaction.Status=,Transaction.PaymentId=,Invoice.ExternalIdentifier=",
		Canonicalize(SignedFields{}),
	)
}

func TestSign_KnownVector(t *testing.T) {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte("Invoice.Id=INV-1001,Invoice.Status=PENDING,Transaction.Status=AUTHORIZE,Transaction.PaymentId=07071234567,Invoice.ExternalIdentifier=ext-42"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, Sign(sampleFields(), testSecret))
	assert.Len(t, want, 44)
}

func TestVerify_Accepts(t *testing.T) {
	f := sampleFields()
	sig := Sign(f, testSecret)

	assert.True(t, Verify(f, sig, testSecret))
	assert.True(t, Verify(f, "  "+sig+"\n", testSecret))
}

func TestVerify_Rejects(t *testing.T) {
	f := sampleFields()
	sig := Sign(f, testSecret)

	tests := []struct {
		name   string
		fields SignedFields
		sig    string
		secret string
	}{
		{name: "empty signature", fields: f, sig: "", secret: testSecret},
		{name: "empty secret", fields: f, sig: Sign(f, ""), secret: ""},
		{name: "wrong secret", fields: f, sig: sig, secret: testSecret + "x"},
		{name: "hex encoding of the right digest", fields: f, sig: hexSign(f, testSecret), secret: testSecret},
		{name: "raw body scheme", fields: f, sig: rawBodySign(t, f, testSecret), secret: testSecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(tt.fields, tt.sig, tt.secret))
		})
	}
}

func TestVerify_SingleCharacterMutationOfAnyFieldRejects(t *testing.T) {
	original := sampleFields()
	sig := Sign(original, testSecret)

	mutators := map[string]func(*SignedFields) *string{
		"InvoiceID":          func(f *SignedFields) *string { return &f.InvoiceID },
		"InvoiceStatus":      func(f *SignedFields) *string { return &f.InvoiceStatus },
		"TransactionStatus":  func(f *SignedFields) *string { return &f.TransactionStatus },
		"PaymentID":          func(f *SignedFields) *string { return &f.PaymentID },
		"ExternalIdentifier": func(f *SignedFields) *string { return &f.ExternalIdentifier },
	}

	for name, field := range mutators {
		value := *field(&original)
		for i := 0; i < len(value); i++ {
			mutated := original
			b := []byte(value)
			b[i] ^= 0x01
			*field(&mutated) = string(b)

			if Verify(mutated, sig, testSecret) {
				t.Errorf("%s mutated at %d (%q) still verified", name, i, string(b))
			}
		}

		appended := original
		*field(&appended) = value + "x"
		assert.False(t, Verify(appended, sig, testSecret), "%s with appended char verified", name)
	}
}

func TestVerify_SignatureMutationRejects(t *testing.T) {
	f := sampleFields()
	sig := []byte(Sign(f, testSecret))
	for i := range sig {
		mutated := make([]byte, len(sig))
		copy(mutated, sig)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		assert.False(t, Verify(f, string(mutated), testSecret), "mutation at %d verified", i)
	}
}

func TestFieldsFromEvent(t *testing.T) {
	var event model.WebhookEvent
	err := json.Unmarshal([]byte(`{
		"Data": {
			"Invoice": {"Id": 1001, "Status": "PENDING", "ExternalIdentifier": "ext-42"},
			"Transaction": {"Status": "AUTHORIZE", "PaymentId": 7071234}
		}
	}`), &event)
	require.NoError(t, err)

	got := FieldsFromEvent(&event)
	assert.Equal(t, SignedFields{
		InvoiceID:          "1001",
		InvoiceStatus:      "PENDING",
		TransactionStatus:  "AUTHORIZE",
		PaymentID:          "7071234",
		ExternalIdentifier: "ext-42",
	}, got)
}

func hexSign(f SignedFields, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Canonicalize(f)))
	return hex.EncodeToString(mac.Sum(nil))
}

func rawBodySign(t *testing.T, f SignedFields, secret string) string {
	t.Helper()
	body, err := json.Marshal(f)
	require.NoError(t, err)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
