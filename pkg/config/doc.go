// Package config loads teamgate configuration from TEAMGATE_* environment variables
// and holds the live feature flags.
//
// # Environment
//
//	TEAMGATE_PORT / TEAMGATE_HEALTH_PORT      API and probe ports (8080 / 9090)
//	TEAMGATE_BASE_PATH                        route prefix (/api/internal/v1)
//	TEAMGATE_POSTGRES_URL                     required
//	TEAMGATE_REDIS_URL                        verification code store
//	TEAMGATE_VERIFICATION_CODE_TTL            lifetime of issued codes (24h)
//	TEAMGATE_TOKEN_CLEANUP_SCHEDULE           cron spec for expired token cleanup
//	TEAMGATE_LOG_LEVEL                        debug, info, warn, error
//	TEAMGATE_OTEL_ENABLED                     export traces and metrics over OTLP gRPC
//
// # Feature Flags
//
// extra_messaging_backends_enabled controls whether messaging backends outside the
// default set can be resolved. It is seeded from
// TEAMGATE_FEATURE_EXTRA_MESSAGING_BACKENDS_ENABLED and, when TEAMGATE_FLAGS_FILE is
// set, reloaded from that YAML file on every change:
//
//	extra_messaging_backends_enabled: true
//
// Requests read the flag once, so a toggle applies to the next request.
package config
