package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	"tripbroker/internal/gateway"
	"tripbroker/internal/reconciler"
	"tripbroker/pkg/config"
	"tripbroker/pkg/kafka"
	kafkamw "tripbroker/pkg/kafka/middleware"
	"tripbroker/pkg/middleware"
)

const ServiceName = "reconciler"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.ValidateGateway(); err != nil {
		cfg.Log.Fatal("Invalid gateway configuration", "error", err)
	}
	if !cfg.EventsEnabled || cfg.Kafka == nil {
		cfg.Log.Fatal("Reconciler requires EVENTS_ENABLED=true and a Kafka configuration")
	}

	gw := gateway.NewClient(gateway.Config{
		BaseURL:        cfg.PaymentGatewayURL,
		Token:          cfg.PaymentGatewayToken,
		Timeout:        cfg.GatewayTimeout,
		MaxRetries:     cfg.GatewayMaxRetries,
		RetryBaseDelay: cfg.GatewayRetryBaseDelay,
	}, cfg.Log)
	h := reconciler.NewHandler(gw, cfg.Log)

	consumer, err := kafka.NewConsumer(cfg.Kafka, cfg.Log, cfg.EscalationTopic, cfg.ReconcilerGroupID, cfg.EscalationDLQTopic, h.Handle)
	if err != nil {
		cfg.Log.Fatal("Failed to create escalation consumer", "error", err)
	}
	metrics := kafkamw.NewMetrics()
	consumer.Use(kafkamw.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(metrics.ConsumerMiddleware())

	router := httprouter.New()
	reconciler.NewHealthHandler(consumer, metrics, cfg.Log).RegisterRoutes(router)
	var healthHTTPHandler http.Handler = router
	healthHTTPHandler = middleware.RequestLogging(cfg.Log)(healthHTTPHandler)
	healthHTTPHandler = middleware.Recovery(cfg.Log)(healthHTTPHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      healthHTTPHandler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumerDone := make(chan error, 1)
	go func() {
		cfg.Log.Info("Starting escalation consumer",
			"topic", cfg.EscalationTopic,
			"group_id", cfg.ReconcilerGroupID,
			"dlq_topic", cfg.EscalationDLQTopic,
		)
		consumerDone <- consumer.Start(ctx)
	}()

	serverErrors := make(chan error, 1)
	go func() {
		cfg.Log.Info("Starting health server", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		cfg.Log.Info("Shutdown signal received")
	case err := <-serverErrors:
		cfg.Log.Error("Health server failed", "error", err)
		stop()
	case err := <-consumerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Error("Escalation consumer stopped", "error", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		cfg.Log.Error("Health server shutdown failed", "error", err)
	}
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close escalation consumer", "error", err)
	}
	cfg.Log.Info("Reconciler stopped")
}
