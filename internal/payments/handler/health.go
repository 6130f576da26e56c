package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	httputil "tripbroker/pkg/http"
	"tripbroker/pkg/logger"
)

type HealthResponse struct {
	Status          string `json:"status"`
	Store           string `json:"store,omitempty"`
	PendingBookings *int64 `json:"pending_bookings,omitempty"`
}

// Pinger reports whether the store connection is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type PendingCounter interface {
	PendingCount(ctx context.Context) (int64, error)
}

type HealthHandler struct {
	store   Pinger
	pending PendingCounter
	backend string
	log     *logger.Logger
}

func NewHealthHandler(store Pinger, pending PendingCounter, backend string, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		store:   store,
		pending: pending,
		backend: backend,
		log:     log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error("Store health check failed",
			"backend", h.backend,
			"error", err,
			"path", r.URL.Path,
		)
		if writeErr := httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Store:  "error",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	resp := HealthResponse{Status: "ready", Store: h.backend}
	if count, err := h.pending.PendingCount(ctx); err != nil {
		h.log.Warn("Failed to count pending bookings", "error", err)
	} else {
		resp.PendingBookings = &count
	}

	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
