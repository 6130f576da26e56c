package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPendingStoreBackend = "PENDING_STORE_BACKEND"
	EnvPendingBookingTTL   = "PENDING_BOOKING_TTL"
	EnvStoreOpTimeout      = "STORE_OP_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvPaymentGatewayURL     = "PAYMENT_GATEWAY_URL"
	EnvPaymentGatewayToken   = "PAYMENT_GATEWAY_TOKEN"
	EnvPaymentWebhookSecret  = "PAYMENT_WEBHOOK_SECRET"
	EnvGatewayTimeout        = "GATEWAY_TIMEOUT"
	EnvGatewayMaxRetries     = "GATEWAY_MAX_RETRIES"
	EnvGatewayRetryBaseDelay = "GATEWAY_RETRY_BASE_DELAY"

	EnvBookingServiceURL     = "BOOKING_SERVICE_URL"
	EnvBookingServiceTimeout = "BOOKING_SERVICE_TIMEOUT"

	EnvSagaStepTimeout    = "SAGA_STEP_TIMEOUT"
	EnvDefaultPhoneRegion = "DEFAULT_PHONE_REGION"

	EnvEventsEnabled      = "EVENTS_ENABLED"
	EnvEscalationTopic    = "ESCALATION_TOPIC"
	EnvEscalationDLQTopic = "ESCALATION_DLQ_TOPIC"
	EnvSagaEventsTopic    = "SAGA_EVENTS_TOPIC"
	EnvReconcilerGroupID  = "RECONCILER_GROUP_ID"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
