package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripbroker/internal/gateway"
	paymentserrors "tripbroker/internal/payments/errors"
	"tripbroker/internal/payments/validator"
	pendingerrors "tripbroker/internal/pendingbookings/errors"
	"tripbroker/internal/pendingbookings/repository"
	"tripbroker/internal/saga"
	"tripbroker/internal/webhook"
	apperrors "tripbroker/pkg/errors"
	"tripbroker/pkg/logger"
	"tripbroker/pkg/model"
)

const gatewayName = "Payment gateway"

type PaymentGateway interface {
	InitiateSession(ctx context.Context) (*gateway.SessionHandle, error)
	ExecutePayment(ctx context.Context, sessionID string, invoiceValue float64) (*gateway.ExecuteResult, error)
	GetStatus(ctx context.Context, key, keyType string) (*gateway.StatusReport, error)
	Capture(ctx context.Context, key, keyType string, amount float64) (*gateway.Ack, error)
	Release(ctx context.Context, key, keyType string, amount float64) (*gateway.Ack, error)
}

type WebhookCoordinator interface {
	HandleWebhook(ctx context.Context, event *model.WebhookEvent) (*saga.Outcome, error)
}

type PaymentService interface {
	InitiateSession(ctx context.Context) (*InitiateSessionResponse, error)
	ExecutePayment(ctx context.Context, req *ExecutePaymentRequest) (*ExecutePaymentResponse, error)
	GetPaymentStatus(ctx context.Context, req *PaymentStatusRequest) (json.RawMessage, error)
	Capture(ctx context.Context, req *UpdatePaymentRequest) (json.RawMessage, error)
	Release(ctx context.Context, req *UpdatePaymentRequest) (json.RawMessage, error)
	ProcessWebhook(ctx context.Context, body []byte, signature string) (*saga.Outcome, error)
	PendingCount(ctx context.Context) (int64, error)
}

type Config struct {
	WebhookSecret string
	// CompensationTimeout bounds the best-effort release that follows a
	// failed store write.
	CompensationTimeout time.Duration
}

type paymentService struct {
	gateway     PaymentGateway
	repo        repository.PendingBookingRepository
	coordinator WebhookCoordinator
	validator   *validator.PaymentValidator
	cfg         Config
	log         *logger.Logger
}

func NewPaymentService(
	gw PaymentGateway,
	repo repository.PendingBookingRepository,
	coordinator WebhookCoordinator,
	validator *validator.PaymentValidator,
	cfg Config,
	log *logger.Logger,
) PaymentService {
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = 30 * time.Second
	}
	return &paymentService{
		gateway:     gw,
		repo:        repo,
		coordinator: coordinator,
		validator:   validator,
		cfg:         cfg,
		log:         log,
	}
}

func (s *paymentService) InitiateSession(ctx context.Context) (*InitiateSessionResponse, error) {
	session, err := s.gateway.InitiateSession(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to initiate payment session", "error", err)
		return nil, apperrors.UpstreamFailure(gatewayName, err)
	}
	return &InitiateSessionResponse{Data: session.Raw, Status: session.StatusCode}, nil
}

// ExecutePayment places the hold and records the booking intent under the
// returned invoice id. If the record cannot be written the hold is released
// so no money stays blocked without a booking attached to it.
func (s *paymentService) ExecutePayment(ctx context.Context, req *ExecutePaymentRequest) (*ExecutePaymentResponse, error) {
	req.SessionID = strings.TrimSpace(req.SessionID)
	if err := s.validator.Validate(req); err != nil {
		s.log.WarnContext(ctx, "Execute payment validation failed", "error", err)
		return nil, apperrors.Validation("Execute payment validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	result, err := s.gateway.ExecutePayment(ctx, req.SessionID, req.InvoiceValue)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to execute payment",
			"session_id", req.SessionID,
			"amount", req.InvoiceValue,
			"error", err,
		)
		return nil, apperrors.UpstreamFailure(gatewayName, err)
	}

	pending := &model.PendingBooking{
		InvoiceID: result.InvoiceID,
		BookingData: model.BookingData{
			FlightOffer:  req.FlightData,
			Travelers:    req.Travelers,
			InvoiceValue: req.InvoiceValue,
			SessionID:    req.SessionID,
		},
	}
	if err := s.repo.Put(ctx, pending); err != nil {
		// The existing record owns this hold; releasing it here would strand
		// that booking.
		if errors.Is(err, pendingerrors.ErrAlreadyExists) {
			s.log.ErrorContext(ctx, "Gateway reused an invoice id that is still pending", "invoice_id", result.InvoiceID)
			return nil, apperrors.Conflict("A pending booking already exists for this invoice")
		}
		s.log.ErrorContext(ctx, "Failed to store pending booking, releasing hold",
			"invoice_id", result.InvoiceID,
			"error", err,
		)
		s.releaseOrphanedHold(ctx, result.InvoiceID, req.InvoiceValue)
		return nil, apperrors.Internal("Failed to record pending booking", err)
	}

	s.log.InfoContext(ctx, "Pending booking recorded",
		"invoice_id", result.InvoiceID,
		"amount", req.InvoiceValue,
		"travelers", len(req.Travelers),
	)

	return &ExecutePaymentResponse{
		Success:    true,
		PaymentURL: result.PaymentURL,
		InvoiceID:  result.InvoiceID,
	}, nil
}

func (s *paymentService) releaseOrphanedHold(ctx context.Context, invoiceID string, amount float64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CompensationTimeout)
	defer cancel()

	if _, err := s.gateway.Release(ctx, invoiceID, model.KeyTypeInvoiceID, amount); err != nil {
		s.log.Critical(ctx, "Failed to release hold with no pending booking",
			"invoice_id", invoiceID,
			"amount", amount,
			"error", err,
		)
	}
}

func (s *paymentService) GetPaymentStatus(ctx context.Context, req *PaymentStatusRequest) (json.RawMessage, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("Payment status validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	report, err := s.gateway.GetStatus(ctx, strings.TrimSpace(req.Key), req.KeyType)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get payment status", "key", req.Key, "key_type", req.KeyType, "error", err)
		return nil, apperrors.UpstreamFailure(gatewayName, err)
	}
	return report.Raw, nil
}

func (s *paymentService) Capture(ctx context.Context, req *UpdatePaymentRequest) (json.RawMessage, error) {
	return s.updateStatus(ctx, gateway.OperationCapture, s.gateway.Capture, req)
}

func (s *paymentService) Release(ctx context.Context, req *UpdatePaymentRequest) (json.RawMessage, error) {
	return s.updateStatus(ctx, gateway.OperationRelease, s.gateway.Release, req)
}

type settleFunc func(ctx context.Context, key, keyType string, amount float64) (*gateway.Ack, error)

// updateStatus settles a hold by hand. A pending booking for the same
// invoice is dropped afterwards so a late webhook cannot settle it again.
func (s *paymentService) updateStatus(ctx context.Context, operation string, settle settleFunc, req *UpdatePaymentRequest) (json.RawMessage, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.Validation("Payment update validation failed", map[string]any{
			"error": err.Error(),
		})
	}
	key := strings.TrimSpace(req.Key)

	ack, err := settle(ctx, key, req.KeyType, req.Amount)
	if err != nil {
		s.log.ErrorContext(ctx, "Manual payment update failed",
			"operation", operation,
			"key", key,
			"key_type", req.KeyType,
			"error", err,
		)
		return nil, apperrors.UpstreamFailure(gatewayName, err)
	}

	if req.KeyType == "" || req.KeyType == model.KeyTypeInvoiceID {
		if err := s.repo.Delete(ctx, key); err != nil {
			s.log.WarnContext(ctx, "Failed to drop pending booking after manual update", "invoice_id", key, "error", err)
		}
	}

	s.log.InfoContext(ctx, "Manual payment update applied", "operation", operation, "key", key, "key_type", req.KeyType)
	return ack.Raw, nil
}

// ProcessWebhook authenticates a gateway notification and runs the saga for
// it. The returned AppError carries the HTTP status the gateway should see.
func (s *paymentService) ProcessWebhook(ctx context.Context, body []byte, signature string) (*saga.Outcome, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		s.log.WarnContext(ctx, "Webhook rejected: missing signature")
		return nil, apperrors.BadRequest("Missing webhook signature", paymentserrors.ErrSignatureMissing)
	}

	var event model.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.WarnContext(ctx, "Webhook rejected: malformed body", "error", err)
		return nil, apperrors.BadRequest("Malformed webhook payload", fmt.Errorf("%w: %w", paymentserrors.ErrBadPayload, err))
	}

	if !webhook.Verify(webhook.FieldsFromEvent(&event), signature, s.cfg.WebhookSecret) {
		s.log.WarnContext(ctx, "Webhook rejected: signature mismatch", "invoice_id", event.InvoiceID())
		return nil, apperrors.Unauthorized("Invalid webhook signature", paymentserrors.ErrSignatureInvalid)
	}

	outcome, err := s.coordinator.HandleWebhook(ctx, &event)
	if err != nil {
		switch {
		case errors.Is(err, paymentserrors.ErrBadPayload):
			return nil, apperrors.BadRequest("Webhook payload is missing the invoice id or transaction status", err)
		case errors.Is(err, paymentserrors.ErrBookingNotFound):
			return nil, apperrors.NotFound("Booking data", err)
		default:
			s.log.ErrorContext(ctx, "Webhook processing failed", "invoice_id", event.InvoiceID(), "error", err)
			return nil, apperrors.Internal("Webhook processing failed", err)
		}
	}

	s.log.InfoContext(ctx, "Webhook processed",
		"invoice_id", outcome.InvoiceID,
		"state", outcome.State,
		"booking_failed", outcome.BookingErr != nil,
		"compensation_failed", outcome.CompensationErr != nil,
	)
	return outcome, nil
}

func (s *paymentService) PendingCount(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
