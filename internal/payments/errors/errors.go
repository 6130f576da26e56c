package errors

import "errors"

var (
	ErrSignatureMissing = errors.New("webhook signature missing")

	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrBadPayload covers webhook bodies that do not parse or lack the
	// invoice id or transaction status.
	ErrBadPayload = errors.New("malformed webhook payload")

	ErrBookingNotFound = errors.New("no pending booking for invoice")
)
