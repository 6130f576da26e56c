package errors

import "errors"

var (
	ErrNotFound = errors.New("pending booking not found")

	ErrAlreadyExists = errors.New("pending booking already exists")

	ErrInvalidInvoiceID = errors.New("invoice id cannot be empty")
)
