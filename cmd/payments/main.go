package main

import (
	"tripbroker/internal/bookingsvc"
	"tripbroker/internal/gateway"
	"tripbroker/internal/payments/handler"
	"tripbroker/internal/payments/service"
	"tripbroker/internal/payments/validator"
	"tripbroker/internal/pendingbookings/repository"
	"tripbroker/internal/saga"
	"tripbroker/pkg/app"
	"tripbroker/pkg/config"
	"tripbroker/pkg/kafka"
	kafkamw "tripbroker/pkg/kafka/middleware"
)

const ServiceName = "payments"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.ValidateGateway(); err != nil {
		cfg.Log.Fatal("Invalid gateway configuration", "error", err)
	}
	if err := cfg.ValidateSaga(); err != nil {
		cfg.Log.Fatal("Invalid saga configuration", "error", err)
	}

	cfg.Log.Info("Starting Payments service")
	cfg.SetStore()

	serverApp := app.NewApplication(cfg)
	paymentService := initServices(cfg, serverApp)
	serverApp.SetApp(
		handler.NewPaymentHandler(paymentService, cfg.Log),
		handler.NewHealthHandler(cfg.Client, paymentService, cfg.PendingStoreBackend, cfg.Log),
	)
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) service.PaymentService {
	repo, err := repository.NewPendingBookingRepository(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to create pending booking store", "error", err)
	}

	gw := gateway.NewClient(gateway.Config{
		BaseURL:        cfg.PaymentGatewayURL,
		Token:          cfg.PaymentGatewayToken,
		Timeout:        cfg.GatewayTimeout,
		MaxRetries:     cfg.GatewayMaxRetries,
		RetryBaseDelay: cfg.GatewayRetryBaseDelay,
	}, cfg.Log)
	booking := bookingsvc.NewClient(cfg.BookingServiceURL, cfg.BookingServiceTimeout, cfg.Log)

	var events interface {
		saga.Escalator
		saga.EventPublisher
	} = saga.NopEvents{}
	if cfg.EventsEnabled {
		events = initEvents(cfg, serverApp)
	} else {
		cfg.Log.Warn("Events disabled, failed compensations are only logged")
	}

	coordinator := saga.NewCoordinator(
		repo,
		gw,
		booking,
		events,
		events,
		saga.Config{
			StepTimeout:        cfg.SagaStepTimeout,
			DefaultPhoneRegion: cfg.DefaultPhoneRegion,
		},
		cfg.Log,
	)

	paymentService := service.NewPaymentService(
		gw,
		repo,
		coordinator,
		validator.NewPaymentValidator(cfg.Log),
		service.Config{WebhookSecret: cfg.PaymentWebhookSecret},
		cfg.Log,
	)

	cfg.Log.Info("Payment service initialized", "store", cfg.PendingStoreBackend)
	return paymentService
}

func initEvents(cfg *config.Config, serverApp *app.Application) *saga.KafkaEvents {
	metrics := kafkamw.NewMetrics()

	escalations, err := kafka.NewProducer(cfg.Kafka, cfg.Log, cfg.EscalationTopic, cfg.EscalationDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create escalation producer", "error", err)
	}
	escalations.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))
	escalations.Use(metrics.ProducerMiddleware())
	serverApp.OnShutdown("escalation producer", escalations.Close)

	outcomes, err := kafka.NewProducer(cfg.Kafka, cfg.Log, cfg.SagaEventsTopic, "")
	if err != nil {
		cfg.Log.Fatal("Failed to create saga events producer", "error", err)
	}
	outcomes.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))
	outcomes.Use(metrics.ProducerMiddleware())
	serverApp.OnShutdown("saga events producer", outcomes.Close)

	cfg.Log.Info("Kafka events enabled",
		"escalation_topic", cfg.EscalationTopic,
		"saga_events_topic", cfg.SagaEventsTopic,
	)
	return saga.NewKafkaEvents(escalations, outcomes, ServiceName)
}
