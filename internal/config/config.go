package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config captures runtime configuration for the API service.
type Config struct {
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Idempotency IdempotencyConfig
	Events      EventsConfig
	Orders      OrdersConfig
	Telemetry   TelemetryConfig
	Service     ServiceConfig
}

type HTTPConfig struct {
	Port          int
	ShutdownGrace int
}

type DatabaseConfig struct {
	// Backend is "postgres" or "memory".
	Backend     string
	URL         string
	AutoMigrate bool
	// MigrationsPath overrides the embedded migrations when set.
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type IdempotencyConfig struct {
	// Backend is "memory", "postgres" or "redis".
	Backend string
	TTL     time.Duration
	LockTTL time.Duration
}

type EventsConfig struct {
	// Backend is "log" or "pubsub".
	Backend            string
	PubSubProject      string
	CreatedTopic       string
	StatusChangedTopic string
}

type OrdersConfig struct {
	StrictTransitions bool
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPPort       = 8080
	defaultShutdownGrace  = 15
	defaultAutoMigrate    = true
	defaultStorageBackend = "postgres"
	defaultRedisAddr      = "localhost:6379"
	defaultIdemBackend    = "postgres"
	defaultIdemTTL        = 24 * time.Hour
	defaultIdemLockTTL    = 30 * time.Second
	defaultEventsBackend  = "log"
	defaultCreatedTopic   = "orders-created"
	defaultStatusTopic    = "orders-status-changed"
	defaultServiceName    = "centralcompras-api"
	defaultServiceVersion = "0.1.0"
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"
	defaultOTelSampleRate = 1.0
)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("loading database config: %w", err)
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, fmt.Errorf("loading redis config: %w", err)
	}

	idemCfg, err := loadIdempotencyConfig()
	if err != nil {
		return nil, fmt.Errorf("loading idempotency config: %w", err)
	}

	eventsCfg, err := loadEventsConfig()
	if err != nil {
		return nil, fmt.Errorf("loading events config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	serviceCfg := loadServiceConfig()

	return &Config{
		HTTP:        httpCfg,
		Database:    dbCfg,
		Redis:       redisCfg,
		Idempotency: idemCfg,
		Events:      eventsCfg,
		Orders:      OrdersConfig{StrictTransitions: getBoolEnv("ORDERS_STRICT_TRANSITIONS", false)},
		Telemetry:   telCfg,
		Service:     serviceCfg,
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port := defaultHTTPPort
	if value, ok := os.LookupEnv("API_HTTP_PORT"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_HTTP_PORT: %w", err)
		}
		port = parsed
	}

	shutdownGrace := defaultShutdownGrace
	if value, ok := os.LookupEnv("API_SHUTDOWN_GRACE_SECONDS"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_SHUTDOWN_GRACE_SECONDS: %w", err)
		}
		shutdownGrace = parsed
	}

	return HTTPConfig{
		Port:          port,
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	backend := getEnvOrDefault("STORAGE_BACKEND", defaultStorageBackend)
	if err := oneOf("STORAGE_BACKEND", backend, "postgres", "memory"); err != nil {
		return DatabaseConfig{}, err
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	autoMigrate := defaultAutoMigrate
	if value, ok := os.LookupEnv("AUTO_MIGRATE"); ok {
		autoMigrate = value == "true"
	}

	return DatabaseConfig{
		Backend:        backend,
		URL:            databaseURL,
		AutoMigrate:    autoMigrate,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
	}, nil
}

func loadRedisConfig() (RedisConfig, error) {
	db := 0
	if value, ok := os.LookupEnv("REDIS_DB"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		db = parsed
	}

	return RedisConfig{
		Addr:     getEnvOrDefault("REDIS_ADDRESS", defaultRedisAddr),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func loadIdempotencyConfig() (IdempotencyConfig, error) {
	backend := getEnvOrDefault("IDEMPOTENCY_BACKEND", defaultIdemBackend)
	if err := oneOf("IDEMPOTENCY_BACKEND", backend, "memory", "postgres", "redis"); err != nil {
		return IdempotencyConfig{}, err
	}

	ttl, err := getDurationEnv("IDEMPOTENCY_TTL", defaultIdemTTL)
	if err != nil {
		return IdempotencyConfig{}, err
	}

	lockTTL, err := getDurationEnv("IDEMPOTENCY_LOCK_TTL", defaultIdemLockTTL)
	if err != nil {
		return IdempotencyConfig{}, err
	}

	return IdempotencyConfig{
		Backend: backend,
		TTL:     ttl,
		LockTTL: lockTTL,
	}, nil
}

func loadEventsConfig() (EventsConfig, error) {
	backend := getEnvOrDefault("EVENTS_BACKEND", defaultEventsBackend)
	if err := oneOf("EVENTS_BACKEND", backend, "log", "pubsub"); err != nil {
		return EventsConfig{}, err
	}

	project := os.Getenv("PUBSUB_PROJECT_ID")
	if backend == "pubsub" && project == "" {
		return EventsConfig{}, fmt.Errorf("PUBSUB_PROJECT_ID is required when EVENTS_BACKEND=pubsub")
	}

	return EventsConfig{
		Backend:            backend,
		PubSubProject:      project,
		CreatedTopic:       getEnvOrDefault("PUBSUB_ORDER_CREATED_TOPIC", defaultCreatedTopic),
		StatusChangedTopic: getEnvOrDefault("PUBSUB_ORDER_STATUS_TOPIC", defaultStatusTopic),
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	logLevel := getEnvOrDefault("LOG_LEVEL", defaultLogLevel)
	otelEndpoint := getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	enableTracing := getBoolEnv("OTEL_ENABLE_TRACING", true)
	enableMetrics := getBoolEnv("OTEL_ENABLE_METRICS", true)

	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      logLevel,
		OTelEndpoint:  otelEndpoint,
		EnableTracing: enableTracing,
		EnableMetrics: enableMetrics,
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "centralcompras")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "25")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "5")
	maxLifetime := getEnvOrDefault("DB_MAX_CONN_LIFETIME", "5m")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s&pool_max_conn_lifetime=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns, maxLifetime,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s %q: must be one of %v", key, value, allowed)
}
