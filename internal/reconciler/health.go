package reconciler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	httputil "tripbroker/pkg/http"
	kafkamw "tripbroker/pkg/kafka/middleware"
	"tripbroker/pkg/logger"
)

type LagReporter interface {
	Lag() int64
}

type HealthResponse struct {
	Status  string                  `json:"status"`
	Lag     int64                   `json:"lag"`
	Metrics kafkamw.MetricsSnapshot `json:"metrics"`
}

type HealthHandler struct {
	consumer LagReporter
	metrics  *kafkamw.Metrics
	log      *logger.Logger
}

func NewHealthHandler(consumer LagReporter, metrics *kafkamw.Metrics, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		consumer: consumer,
		metrics:  metrics,
		log:      log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Lag:     h.consumer.Lag(),
		Metrics: h.metrics.Snapshot(),
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
}
