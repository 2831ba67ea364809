package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/teamgate/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Verification code configuration
	Verification VerificationConfig

	// Messaging backend configuration
	Messaging MessagingConfig

	// Background maintenance configuration
	Maintenance MaintenanceConfig

	// Observability configuration
	Observability ObservabilityConfig

	// Feature flag defaults
	Features FeaturesConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	BasePath        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	PostgresURL string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	AutoMigrate bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// VerificationConfig holds verification code settings
type VerificationConfig struct {
	CodeTTL time.Duration
	// RequestsPerHour caps verification code requests per user
	RequestsPerHour int
}

// MessagingConfig holds messaging backend settings
type MessagingConfig struct {
	TelegramBotToken    string
	TelegramBotUsername string
	MSTeamsAppID        string
}

// MaintenanceConfig holds cron schedules for background jobs
type MaintenanceConfig struct {
	TokenCleanupSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// FeaturesConfig holds the startup values of feature flags
type FeaturesConfig struct {
	ExtraMessagingBackendsEnabled bool
	// FlagsFile is an optional YAML file watched for runtime flag changes
	FlagsFile string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Verification:  loadVerificationConfig(),
		Messaging:     loadMessagingConfig(),
		Maintenance:   loadMaintenanceConfig(),
		Observability: loadObservabilityConfig(),
		Features:      loadFeaturesConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("TEAMGATE_HOST", "0.0.0.0"),
		Port:            getEnv("TEAMGATE_PORT", "8080"),
		BasePath:        getEnv("TEAMGATE_BASE_PATH", "/api/internal/v1"),
		ReadTimeout:     getEnvDuration("TEAMGATE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("TEAMGATE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("TEAMGATE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("TEAMGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("TEAMGATE_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		PostgresURL: getEnv("TEAMGATE_POSTGRES_URL", ""),
		MaxConns:    getEnvInt("TEAMGATE_POSTGRES_MAX_CONNS", 20),
		MinConns:    getEnvInt("TEAMGATE_POSTGRES_MIN_CONNS", 5),
		Timeout:     getEnvDuration("TEAMGATE_POSTGRES_TIMEOUT", 10*time.Second),
		MaxLifetime: getEnvDuration("TEAMGATE_POSTGRES_MAX_LIFETIME", 30*time.Minute),
		MaxIdleTime: getEnvDuration("TEAMGATE_POSTGRES_MAX_IDLE_TIME", 5*time.Minute),
		AutoMigrate: getEnvBool("TEAMGATE_POSTGRES_AUTO_MIGRATE", false),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:        getEnv("TEAMGATE_REDIS_URL", "redis://localhost:6379/0"),
		Password:   getEnv("TEAMGATE_REDIS_PASSWORD", ""),
		DB:         getEnvInt("TEAMGATE_REDIS_DB", -1),
		MaxRetries: getEnvInt("TEAMGATE_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("TEAMGATE_REDIS_POOL_SIZE", 10),
	}
}

func loadVerificationConfig() VerificationConfig {
	return VerificationConfig{
		CodeTTL:         getEnvDuration("TEAMGATE_VERIFICATION_CODE_TTL", 24*time.Hour),
		RequestsPerHour: getEnvInt("TEAMGATE_VERIFICATION_REQUESTS_PER_HOUR", 60),
	}
}

func loadMessagingConfig() MessagingConfig {
	return MessagingConfig{
		TelegramBotToken:    getEnv("TEAMGATE_TELEGRAM_TOKEN", ""),
		TelegramBotUsername: getEnv("TEAMGATE_TELEGRAM_BOT_USERNAME", ""),
		MSTeamsAppID:        getEnv("TEAMGATE_MSTEAMS_APP_ID", ""),
	}
}

func loadMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		TokenCleanupSchedule: getEnv("TEAMGATE_TOKEN_CLEANUP_SCHEDULE", "@every 1h"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("TEAMGATE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("TEAMGATE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("TEAMGATE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("TEAMGATE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("TEAMGATE_OTEL_SERVICE_NAME", "teamgate"),
		OTelServiceVersion: getEnv("TEAMGATE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("TEAMGATE_OTEL_INSECURE", true),
	}
}

func loadFeaturesConfig() FeaturesConfig {
	return FeaturesConfig{
		ExtraMessagingBackendsEnabled: getEnvBool("TEAMGATE_FEATURE_EXTRA_MESSAGING_BACKENDS_ENABLED", false),
		FlagsFile:                     getEnv("TEAMGATE_FLAGS_FILE", ""),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("base path must start with /")
	}

	if c.Database.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("postgres max conns (%d) must be >= min conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}

	if c.Verification.CodeTTL <= 0 {
		return fmt.Errorf("verification code TTL must be positive")
	}
	if c.Verification.RequestsPerHour < 0 {
		return fmt.Errorf("verification requests per hour cannot be negative")
	}

	if _, err := cron.ParseStandard(c.Maintenance.TokenCleanupSchedule); err != nil {
		return fmt.Errorf("invalid token cleanup schedule %q: %w", c.Maintenance.TokenCleanupSchedule, err)
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
