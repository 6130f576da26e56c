package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tripbroker/internal/payments/service"
	"tripbroker/internal/webhook"
	apperrors "tripbroker/pkg/errors"
	httputil "tripbroker/pkg/http"
	"tripbroker/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const webhookProcessedMessage = "Webhook processed"

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

func (h *PaymentHandler) InitiateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp, err := h.service.InitiateSession(r.Context())
	if err != nil {
		h.writeError(w, "InitiateSession", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "InitiateSession", "operation", "WriteJSON", "error", err)
	}
}

func (h *PaymentHandler) ExecutePayment(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.ExecutePaymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "ExecutePayment", err)
		return
	}

	resp, err := h.service.ExecutePayment(r.Context(), &req)
	if err != nil {
		h.writeError(w, "ExecutePayment", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "ExecutePayment", "operation", "WriteJSON", "error", err)
	}
}

func (h *PaymentHandler) PaymentStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.PaymentStatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "PaymentStatus", err)
		return
	}

	payload, err := h.service.GetPaymentStatus(r.Context(), &req)
	if err != nil {
		h.writeError(w, "PaymentStatus", err)
		return
	}
	h.writeProviderPayload(w, "PaymentStatus", payload)
}

func (h *PaymentHandler) CaptureAmount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.UpdatePaymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CaptureAmount", err)
		return
	}

	payload, err := h.service.Capture(r.Context(), &req)
	if err != nil {
		h.writeError(w, "CaptureAmount", err)
		return
	}
	h.writeProviderPayload(w, "CaptureAmount", payload)
}

func (h *PaymentHandler) ReleaseAmount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.UpdatePaymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "ReleaseAmount", err)
		return
	}

	payload, err := h.service.Release(r.Context(), &req)
	if err != nil {
		h.writeError(w, "ReleaseAmount", err)
		return
	}
	h.writeProviderPayload(w, "ReleaseAmount", payload)
}

// PaymentWebhook needs the raw body because the signature covers fields
// of the parsed event, not the bytes on the wire.
func (h *PaymentHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, "PaymentWebhook", apperrors.PayloadTooLarge())
			return
		}
		h.writeError(w, "PaymentWebhook", apperrors.InvalidInput("failed to read request body"))
		return
	}

	if _, err := h.service.ProcessWebhook(r.Context(), body, r.Header.Get(webhook.SignatureHeader)); err != nil {
		h.writeError(w, "PaymentWebhook", err)
		return
	}

	if err := httputil.WriteMessage(w, http.StatusOK, webhookProcessedMessage); err != nil {
		h.log.Error("failed to write JSON response", "handler", "PaymentWebhook", "operation", "WriteMessage", "error", err)
	}
}

// writeProviderPayload passes the gateway's JSON through untouched.
func (h *PaymentHandler) writeProviderPayload(w http.ResponseWriter, handler string, payload json.RawMessage) {
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if err := httputil.WriteJSON(w, http.StatusOK, payload); err != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", err)
	}
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
