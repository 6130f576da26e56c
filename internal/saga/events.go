package saga

import (
	"context"
	"fmt"
	"time"

	"tripbroker/pkg/kafka"
	"tripbroker/pkg/model"
)

const (
	EventTypeCompensationFailed = "payment.compensation.failed"
	EventTypeSagaCompleted      = "payment.saga.completed"

	eventSchemaVersion = "1"
)

// CompensationFailedEvent asks the reconciler to retry a capture or release
// the coordinator could not complete. Money stays held until it succeeds.
type CompensationFailedEvent struct {
	InvoiceID    string    `json:"invoice_id"`
	Operation    string    `json:"operation"`
	KeyType      string    `json:"key_type"`
	Amount       float64   `json:"amount"`
	Reason       string    `json:"reason"`
	BookingError string    `json:"booking_error,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// SagaCompletedEvent records the final disposition of one invoice.
type SagaCompletedEvent struct {
	InvoiceID         string          `json:"invoice_id"`
	State             model.SagaState `json:"state"`
	TransactionStatus string          `json:"transaction_status"`
	Amount            float64         `json:"amount"`
	BookingError      string          `json:"booking_error,omitempty"`
	CompensationError string          `json:"compensation_error,omitempty"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

type Escalator interface {
	Escalate(ctx context.Context, evt CompensationFailedEvent) error
}

type EventPublisher interface {
	PublishCompleted(ctx context.Context, evt SagaCompletedEvent) error
}

// KafkaEvents publishes escalations and outcomes to their own topics.
type KafkaEvents struct {
	escalations kafka.Publisher
	outcomes    kafka.Publisher
	source      string
}

func NewKafkaEvents(escalations, outcomes kafka.Publisher, source string) *KafkaEvents {
	return &KafkaEvents{
		escalations: escalations,
		outcomes:    outcomes,
		source:      source,
	}
}

func (k *KafkaEvents) Escalate(ctx context.Context, evt CompensationFailedEvent) error {
	return k.publish(ctx, k.escalations, EventTypeCompensationFailed, evt.InvoiceID, evt)
}

func (k *KafkaEvents) PublishCompleted(ctx context.Context, evt SagaCompletedEvent) error {
	return k.publish(ctx, k.outcomes, EventTypeSagaCompleted, evt.InvoiceID, evt)
}

func (k *KafkaEvents) publish(ctx context.Context, p kafka.Publisher, eventType, invoiceID string, value any) error {
	msg, err := kafka.NewMessage().
		WithKey(invoiceID).
		WithEventType(eventType).
		WithCorrelationID(invoiceID).
		WithSchemaVersion(eventSchemaVersion).
		WithSource(k.source).
		WithValue(value).
		Build()
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	return p.Publish(ctx, msg)
}

// NopEvents drops everything. Used when events are disabled.
type NopEvents struct{}

func (NopEvents) Escalate(context.Context, CompensationFailedEvent) error { return nil }

func (NopEvents) PublishCompleted(context.Context, SagaCompletedEvent) error { return nil }
