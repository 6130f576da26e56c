// Package saga settles an authorization hold once the gateway confirms it:
// book the flight, then capture the hold on success or release it on any
// failure. Exactly one of capture or release runs per invoice.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripbroker/internal/bookingsvc"
	"tripbroker/internal/gateway"
	paymentserrors "tripbroker/internal/payments/errors"
	pendingerrors "tripbroker/internal/pendingbookings/errors"
	"tripbroker/internal/pendingbookings/repository"
	"tripbroker/pkg/logger"
	"tripbroker/pkg/model"
)

type PaymentGateway interface {
	Capture(ctx context.Context, key, keyType string, amount float64) (*gateway.Ack, error)
	Release(ctx context.Context, key, keyType string, amount float64) (*gateway.Ack, error)
}

type BookingService interface {
	Book(ctx context.Context, req *model.FlightBookingRequest) (*bookingsvc.Result, error)
}

const (
	defaultStepTimeout = 45 * time.Second
	defaultPhoneRegion = "KW"
)

type Config struct {
	StepTimeout        time.Duration
	DefaultPhoneRegion string
}

type Outcome struct {
	InvoiceID         string
	TransactionStatus string
	State             model.SagaState
	// BookingErr is set when the flight could not be booked and the hold
	// was released instead of captured.
	BookingErr error
	// CompensationErr is set when the capture or release itself failed
	// and the invoice was escalated.
	CompensationErr error
}

type Coordinator struct {
	store     repository.PendingBookingRepository
	gateway   PaymentGateway
	booking   BookingService
	escalator Escalator
	events    EventPublisher
	cfg       Config
	log       *logger.Logger
}

func NewCoordinator(
	store repository.PendingBookingRepository,
	gw PaymentGateway,
	booking BookingService,
	escalator Escalator,
	events EventPublisher,
	cfg Config,
	log *logger.Logger,
) *Coordinator {
	if escalator == nil {
		escalator = NopEvents{}
	}
	if events == nil {
		events = NopEvents{}
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = defaultStepTimeout
	}
	if cfg.DefaultPhoneRegion == "" {
		cfg.DefaultPhoneRegion = defaultPhoneRegion
	}
	return &Coordinator{
		store:     store,
		gateway:   gw,
		booking:   booking,
		escalator: escalator,
		events:    events,
		cfg:       cfg,
		log:       log,
	}
}

// HandleWebhook drives one verified gateway notification to a terminal
// state. It returns ErrBadPayload or ErrBookingNotFound before touching the
// gateway; once the record is claimed, booking and compensation failures are
// reported on the Outcome rather than as an error.
func (c *Coordinator) HandleWebhook(ctx context.Context, event *model.WebhookEvent) (*Outcome, error) {
	invoiceID := event.InvoiceID()
	status := event.TransactionStatus()
	if invoiceID == "" || status == "" {
		return nil, fmt.Errorf("%w: invoice id and transaction status are required", paymentserrors.ErrBadPayload)
	}

	// A client hanging up must not abort a capture or release midway.
	ctx = context.WithoutCancel(ctx)
	log := c.log.With("invoice_id", invoiceID, "transaction_status", status)

	claimCtx, cancel := context.WithTimeout(ctx, c.cfg.StepTimeout)
	pending, err := c.store.Claim(claimCtx, invoiceID)
	cancel()
	if err != nil {
		if errors.Is(err, pendingerrors.ErrNotFound) {
			log.WarnContext(ctx, "Webhook for unknown invoice")
			return nil, fmt.Errorf("%w: %s", paymentserrors.ErrBookingNotFound, invoiceID)
		}
		return nil, fmt.Errorf("claim pending booking: %w", err)
	}

	outcome := &Outcome{
		InvoiceID:         invoiceID,
		TransactionStatus: status,
		State:             model.SagaAuthorizedPending,
	}
	amount := pending.BookingData.InvoiceValue

	if !event.IsAuthorized() {
		outcome.State = model.SagaIgnored
		log.InfoContext(ctx, "Transaction not authorized, nothing to settle")
		c.publishCompleted(ctx, log, outcome, amount)
		return outcome, nil
	}

	outcome.State = model.SagaBookingInFlight
	log.InfoContext(ctx, "Hold authorized, booking flight", "amount", amount, "travelers", len(pending.BookingData.Travelers))

	outcome.BookingErr = c.book(ctx, pending)

	operation := gateway.OperationCapture
	settle := c.gateway.Capture
	outcome.State = model.SagaCaptured
	if outcome.BookingErr != nil {
		log.WarnContext(ctx, "Flight booking failed, releasing hold", "error", outcome.BookingErr)
		operation = gateway.OperationRelease
		settle = c.gateway.Release
		outcome.State = model.SagaReleased
	}

	stepCtx, cancel := context.WithTimeout(ctx, c.cfg.StepTimeout)
	_, outcome.CompensationErr = settle(stepCtx, invoiceID, model.KeyTypeInvoiceID, amount)
	cancel()

	if outcome.CompensationErr != nil {
		c.escalate(ctx, log, outcome, operation, amount)
	} else {
		log.InfoContext(ctx, "Payment settled", "operation", operation, "state", outcome.State)
	}

	c.publishCompleted(ctx, log, outcome, amount)
	return outcome, nil
}

func (c *Coordinator) book(ctx context.Context, pending *model.PendingBooking) error {
	travelers, err := TransformTravelers(pending.BookingData.Travelers, c.cfg.DefaultPhoneRegion)
	if err != nil {
		return fmt.Errorf("prepare travelers: %w", err)
	}

	req := &model.FlightBookingRequest{
		FlightOffer: pending.BookingData.FlightOffer,
		Travelers:   travelers,
		TicketingAgreement: model.TicketingAgreement{
			Option: model.TicketingOptionDelayToCancel,
			Delay:  model.TicketingDelay,
		},
	}

	stepCtx, cancel := context.WithTimeout(ctx, c.cfg.StepTimeout)
	defer cancel()

	_, err = c.booking.Book(stepCtx, req)
	return err
}

func (c *Coordinator) escalate(ctx context.Context, log *logger.Logger, outcome *Outcome, operation string, amount float64) {
	log.Critical(ctx, "Payment compensation failed, hold needs reconciliation",
		"operation", operation,
		"amount", amount,
		"error", outcome.CompensationErr,
	)

	evt := CompensationFailedEvent{
		InvoiceID:  outcome.InvoiceID,
		Operation:  operation,
		KeyType:    model.KeyTypeInvoiceID,
		Amount:     amount,
		Reason:     outcome.CompensationErr.Error(),
		OccurredAt: time.Now().UTC(),
	}
	if outcome.BookingErr != nil {
		evt.BookingError = outcome.BookingErr.Error()
	}

	stepCtx, cancel := context.WithTimeout(ctx, c.cfg.StepTimeout)
	defer cancel()
	if err := c.escalator.Escalate(stepCtx, evt); err != nil {
		log.Critical(ctx, "Failed to publish compensation escalation",
			"operation", operation,
			"amount", amount,
			"error", err,
		)
	}
}

func (c *Coordinator) publishCompleted(ctx context.Context, log *logger.Logger, outcome *Outcome, amount float64) {
	evt := SagaCompletedEvent{
		InvoiceID:         outcome.InvoiceID,
		State:             outcome.State,
		TransactionStatus: outcome.TransactionStatus,
		Amount:            amount,
		OccurredAt:        time.Now().UTC(),
	}
	if outcome.BookingErr != nil {
		evt.BookingError = outcome.BookingErr.Error()
	}
	if outcome.CompensationErr != nil {
		evt.CompensationError = outcome.CompensationErr.Error()
	}

	stepCtx, cancel := context.WithTimeout(ctx, c.cfg.StepTimeout)
	defer cancel()
	if err := c.events.PublishCompleted(stepCtx, evt); err != nil {
		log.WarnContext(ctx, "Failed to publish saga outcome", "state", outcome.State, "error", err)
	}
}
