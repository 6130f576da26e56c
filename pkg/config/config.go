package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tripbroker/pkg/client"
	kafka_config "tripbroker/pkg/kafka/config"
	"tripbroker/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PendingStoreBackend string
	PendingBookingTTL   time.Duration
	StoreOpTimeout      time.Duration

	Port string

	PaymentGatewayURL     string
	PaymentGatewayToken   string
	PaymentWebhookSecret  string
	GatewayTimeout        time.Duration
	GatewayMaxRetries     int
	GatewayRetryBaseDelay time.Duration

	BookingServiceURL     string
	BookingServiceTimeout time.Duration

	SagaStepTimeout    time.Duration
	DefaultPhoneRegion string

	EventsEnabled      bool
	EscalationTopic    string
	EscalationDLQTopic string
	SagaEventsTopic    string
	ReconcilerGroupID  string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
	Kafka  *kafka_config.Config
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		PendingStoreBackend: strings.ToLower(getEnvStr(EnvPendingStoreBackend, DefaultPendingStoreBackend)),
		PendingBookingTTL:   getEnvDuration(EnvPendingBookingTTL, DefaultPendingBookingTTL),
		StoreOpTimeout:      getEnvDuration(EnvStoreOpTimeout, DefaultStoreOpTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		PaymentGatewayURL:     strings.TrimRight(getEnvStr(EnvPaymentGatewayURL, DefaultPaymentGatewayURL), "/"),
		PaymentGatewayToken:   getEnvStr(EnvPaymentGatewayToken, ""),
		PaymentWebhookSecret:  getEnvStr(EnvPaymentWebhookSecret, ""),
		GatewayTimeout:        getEnvDuration(EnvGatewayTimeout, DefaultGatewayTimeout),
		GatewayMaxRetries:     getEnvNum(EnvGatewayMaxRetries, DefaultGatewayMaxRetries),
		GatewayRetryBaseDelay: getEnvDuration(EnvGatewayRetryBaseDelay, DefaultGatewayRetryBaseDelay),

		BookingServiceURL:     strings.TrimRight(getEnvStr(EnvBookingServiceURL, DefaultBookingServiceURL), "/"),
		BookingServiceTimeout: getEnvDuration(EnvBookingServiceTimeout, DefaultBookingServiceTimeout),

		SagaStepTimeout:    getEnvDuration(EnvSagaStepTimeout, DefaultSagaStepTimeout),
		DefaultPhoneRegion: strings.ToUpper(getEnvStr(EnvDefaultPhoneRegion, DefaultDefaultPhoneRegion)),

		EventsEnabled:      getEnvBool(EnvEventsEnabled, DefaultEventsEnabled),
		EscalationTopic:    getEnvStr(EnvEscalationTopic, DefaultEscalationTopic),
		EscalationDLQTopic: getEnvStr(EnvEscalationDLQTopic, DefaultEscalationDLQTopic),
		SagaEventsTopic:    getEnvStr(EnvSagaEventsTopic, DefaultSagaEventsTopic),
		ReconcilerGroupID:  getEnvStr(EnvReconcilerGroupID, DefaultReconcilerGroupID),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if cfg.EventsEnabled {
		kafkaCfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		cfg.Kafka = kafkaCfg
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// SetStore connects whichever backend PendingStoreBackend selects.
func (cfg *Config) SetStore() {
	switch cfg.PendingStoreBackend {
	case StoreBackendMongo:
		cfg.SetMongo()
	case StoreBackendRedis:
		cfg.SetRedis()
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.PendingStoreBackend {
	case StoreBackendMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StoreBackendRedis:
		if cfg.RedisAddr == "" {
			errors = append(errors, "RedisAddr cannot be empty")
		}
		if cfg.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
		}
	case StoreBackendMemory:
	default:
		errors = append(errors, fmt.Sprintf("PendingStoreBackend must be one of [mongo, redis, memory], got: %s", cfg.PendingStoreBackend))
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.PendingBookingTTL <= 0 {
		errors = append(errors, fmt.Sprintf("PendingBookingTTL must be positive, got: %s", cfg.PendingBookingTTL))
	}
	if cfg.StoreOpTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("StoreOpTimeout must be positive, got: %s", cfg.StoreOpTimeout))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}

	if cfg.EventsEnabled {
		if cfg.EscalationTopic == "" {
			errors = append(errors, "EscalationTopic cannot be empty when events are enabled")
		}
		if cfg.SagaEventsTopic == "" {
			errors = append(errors, "SagaEventsTopic cannot be empty when events are enabled")
		}
	}

	return joinErrors(errors)
}

// ValidateGateway checks the settings only the payment-facing binaries need.
func (cfg *Config) ValidateGateway() error {
	var errors []string

	if !isHTTPURL(cfg.PaymentGatewayURL) {
		errors = append(errors, fmt.Sprintf("PaymentGatewayURL must be an http(s) URL, got: %s", cfg.PaymentGatewayURL))
	}
	if cfg.PaymentGatewayToken == "" {
		errors = append(errors, "PaymentGatewayToken cannot be empty")
	}
	if cfg.GatewayTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("GatewayTimeout must be positive, got: %s", cfg.GatewayTimeout))
	}
	if cfg.GatewayMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("GatewayMaxRetries cannot be negative, got: %d", cfg.GatewayMaxRetries))
	}
	if cfg.GatewayRetryBaseDelay <= 0 {
		errors = append(errors, fmt.Sprintf("GatewayRetryBaseDelay must be positive, got: %s", cfg.GatewayRetryBaseDelay))
	}

	return joinErrors(errors)
}

// ValidateSaga checks the settings the webhook-driven saga needs on top of ValidateGateway.
func (cfg *Config) ValidateSaga() error {
	var errors []string

	if cfg.PaymentWebhookSecret == "" {
		errors = append(errors, "PaymentWebhookSecret cannot be empty")
	}
	if !isHTTPURL(cfg.BookingServiceURL) {
		errors = append(errors, fmt.Sprintf("BookingServiceURL must be an http(s) URL, got: %s", cfg.BookingServiceURL))
	}
	if cfg.BookingServiceTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("BookingServiceTimeout must be positive, got: %s", cfg.BookingServiceTimeout))
	}
	if cfg.SagaStepTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("SagaStepTimeout must be positive, got: %s", cfg.SagaStepTimeout))
	}
	if budget := cfg.WebhookBudget(); cfg.WriteTimeout <= budget {
		errors = append(errors, fmt.Sprintf("WriteTimeout must exceed the webhook budget of %s (claim + booking + settle), got: %s", budget, cfg.WriteTimeout))
	}
	if len(cfg.DefaultPhoneRegion) != 2 {
		errors = append(errors, fmt.Sprintf("DefaultPhoneRegion must be an ISO 3166-1 alpha-2 code, got: %s", cfg.DefaultPhoneRegion))
	}

	return joinErrors(errors)
}

// WebhookBudget is the longest a webhook can run once its saga starts: the
// claim, the booking call, then one capture or release. Each is capped by
// SagaStepTimeout.
func (cfg *Config) WebhookBudget() time.Duration {
	return min(cfg.StoreOpTimeout, cfg.SagaStepTimeout) +
		min(cfg.BookingServiceTimeout, cfg.SagaStepTimeout) +
		cfg.SagaStepTimeout
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"redis_db", cfg.RedisDB,
		"pending_store_backend", cfg.PendingStoreBackend,
		"pending_booking_ttl", cfg.PendingBookingTTL,
		"store_op_timeout", cfg.StoreOpTimeout,
		"port", cfg.Port,
		"payment_gateway_url", cfg.PaymentGatewayURL,
		"payment_gateway_token_set", cfg.PaymentGatewayToken != "",
		"payment_webhook_secret_set", cfg.PaymentWebhookSecret != "",
		"gateway_timeout", cfg.GatewayTimeout,
		"gateway_max_retries", cfg.GatewayMaxRetries,
		"gateway_retry_base_delay", cfg.GatewayRetryBaseDelay,
		"booking_service_url", cfg.BookingServiceURL,
		"booking_service_timeout", cfg.BookingServiceTimeout,
		"saga_step_timeout", cfg.SagaStepTimeout,
		"default_phone_region", cfg.DefaultPhoneRegion,
		"events_enabled", cfg.EventsEnabled,
		"escalation_topic", cfg.EscalationTopic,
		"saga_events_topic", cfg.SagaEventsTopic,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func joinErrors(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	errMsg := "Configuration validation failed:\n"
	for i, err := range errors {
		errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
	}
	return fmt.Errorf("%s", errMsg)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
