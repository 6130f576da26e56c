// Package reconciler retries captures and releases the saga coordinator
// could not complete. It consumes the compensation escalation topic; events
// that keep failing end up on the dead-letter topic for a human.
package reconciler

import (
	"context"
	"fmt"
	"strings"

	"tripbroker/internal/gateway"
	"tripbroker/internal/saga"
	"tripbroker/pkg/kafka"
	"tripbroker/pkg/logger"
	"tripbroker/pkg/model"
)

type PaymentGateway interface {
	Capture(ctx context.Context, key, keyType string, amount float64) (*gateway.Ack, error)
	Release(ctx context.Context, key, keyType string, amount float64) (*gateway.Ack, error)
}

type Handler struct {
	gateway PaymentGateway
	log     *logger.Logger
}

func NewHandler(gw PaymentGateway, log *logger.Logger) *Handler {
	return &Handler{
		gateway: gw,
		log:     log,
	}
}

// Handle is a kafka.MessageHandler. Gateway faults worth retrying come back
// as transient errors; everything else is permanent and goes to the DLQ.
func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	if eventType := msg.GetEventType(); eventType != saga.EventTypeCompensationFailed {
		h.log.Debug("Skipping unrelated event", "event_type", eventType, "key", msg.Key)
		return nil
	}

	var evt saga.CompensationFailedEvent
	if err := msg.DecodeValue(&evt); err != nil {
		return kafka.NewPermanentError("malformed compensation event", err)
	}
	evt.InvoiceID = strings.TrimSpace(evt.InvoiceID)
	if evt.InvoiceID == "" {
		return kafka.NewPermanentError("compensation event has no invoice id", nil)
	}
	if evt.KeyType == "" {
		evt.KeyType = model.KeyTypeInvoiceID
	}

	var settle func(ctx context.Context, key, keyType string, amount float64) (*gateway.Ack, error)
	switch evt.Operation {
	case gateway.OperationCapture:
		settle = h.gateway.Capture
	case gateway.OperationRelease:
		settle = h.gateway.Release
	default:
		return kafka.NewPermanentError(fmt.Sprintf("unknown compensation operation %q", evt.Operation), nil)
	}

	log := h.log.With(
		"invoice_id", evt.InvoiceID,
		"operation", evt.Operation,
		"amount", evt.Amount,
		"attempt", msg.GetRetryCount()+1,
	)

	if _, err := settle(ctx, evt.InvoiceID, evt.KeyType, evt.Amount); err != nil {
		if gateway.IsRetryable(err) {
			log.Warn("Reconciliation attempt failed, will retry", "error", err)
			return kafka.NewTransientError("gateway unavailable", err)
		}
		log.Critical(ctx, "Reconciliation rejected by gateway", "error", err)
		return kafka.NewPermanentError("gateway rejected compensation", err)
	}

	log.Info("Held payment reconciled", "original_failure", evt.Reason)
	return nil
}
