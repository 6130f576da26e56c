package model

// SagaState is where one invoice sits in the authorize, book, settle flow.
type SagaState string

const (
	SagaAuthorizedPending SagaState = "AUTHORIZED_PENDING"
	SagaBookingInFlight   SagaState = "BOOKING_IN_FLIGHT"
	SagaCaptured          SagaState = "CAPTURED"
	SagaReleased          SagaState = "RELEASED"
	SagaIgnored           SagaState = "IGNORED"
)

// Gateway key types accepted by capture, release and status calls.
const (
	KeyTypeInvoiceID = "InvoiceId"
	KeyTypePaymentID = "PaymentId"
)
