package config

import "time"

const (
	StoreBackendMongo  = "mongo"
	StoreBackendRedis  = "redis"
	StoreBackendMemory = "memory"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "tripbroker"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultPendingStoreBackend = StoreBackendMongo
	DefaultPendingBookingTTL   = 72 * time.Hour
	DefaultStoreOpTimeout      = 5 * time.Second

	DefaultPort = "8080"

	DefaultPaymentGatewayURL     = "https://apitest.myfatoorah.com"
	DefaultGatewayTimeout        = 15 * time.Second
	DefaultGatewayMaxRetries     = 3
	DefaultGatewayRetryBaseDelay = 500 * time.Millisecond

	DefaultBookingServiceURL     = "http://localhost:5000"
	DefaultBookingServiceTimeout = 30 * time.Second

	DefaultSagaStepTimeout    = 45 * time.Second
	DefaultDefaultPhoneRegion = "KW"

	DefaultEventsEnabled      = true
	DefaultEscalationTopic    = "payments.compensation.failed"
	DefaultEscalationDLQTopic = "payments.compensation.failed.dlq"
	DefaultSagaEventsTopic    = "payments.saga.completed"
	DefaultReconcilerGroupID  = "payments-reconciler"

	DefaultRequestTimeout = 60 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = time.Minute

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 90 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
