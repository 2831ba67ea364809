package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Gate metrics
	GateOutcomesTotal *prometheus.CounterVec

	// Verification code metrics
	VerificationCodesIssuedTotal *prometheus.CounterVec
	VerificationRateLimitedTotal prometheus.Counter

	// Feature flags
	FeatureFlagEnabled *prometheus.GaugeVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
	DBConnectionsWait   prometheus.Gauge

	// Redis metrics
	RedisConnectionsActive prometheus.Gauge
	RedisConnectionsIdle   prometheus.Gauge

	// Maintenance metrics
	ExpiredTokensRemovedTotal prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamgate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "teamgate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		GateOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamgate_gate_outcomes_total",
				Help: "Total number of request gate outcomes by action and terminal state",
			},
			[]string{"action", "state"},
		),

		VerificationCodesIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "teamgate_verification_codes_issued_total",
				Help: "Total number of verification codes issued",
			},
			[]string{"backend", "kind"},
		),
		VerificationRateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "teamgate_verification_rate_limited_total",
				Help: "Total number of verification code requests rejected by the rate limiter",
			},
		),

		FeatureFlagEnabled: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "teamgate_feature_flag_enabled",
				Help: "Current value of a feature flag (1 enabled, 0 disabled)",
			},
			[]string{"flag"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "teamgate_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "teamgate_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWait: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "teamgate_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),

		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "teamgate_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),
		RedisConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "teamgate_redis_connections_idle",
				Help: "Number of idle Redis connections",
			},
		),

		ExpiredTokensRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "teamgate_expired_tokens_removed_total",
				Help: "Total number of expired API tokens removed by the cleanup job",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GateOutcomesTotal,
		m.VerificationCodesIssuedTotal,
		m.VerificationRateLimitedTotal,
		m.FeatureFlagEnabled,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWait,
		m.RedisConnectionsActive,
		m.RedisConnectionsIdle,
		m.ExpiredTokensRemovedTotal,
	)

	return m
}

// RecordGateOutcome counts a terminal state of the request gate
func (m *Metrics) RecordGateOutcome(action, state string) {
	if m == nil {
		return
	}
	m.GateOutcomesTotal.WithLabelValues(action, state).Inc()
}

// RecordVerificationCode counts an issued verification code
func (m *Metrics) RecordVerificationCode(backend, kind string) {
	if m == nil {
		return
	}
	m.VerificationCodesIssuedTotal.WithLabelValues(backend, kind).Inc()
}

// RecordRateLimited counts a rejected verification code request
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.VerificationRateLimitedTotal.Inc()
}

// RecordExpiredTokensRemoved counts tokens deleted by the cleanup job
func (m *Metrics) RecordExpiredTokensRemoved(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredTokensRemovedTotal.Add(float64(n))
}

// SetFeatureFlag publishes the current value of a flag
func (m *Metrics) SetFeatureFlag(flag string, enabled bool) {
	if m == nil {
		return
	}
	value := 0.0
	if enabled {
		value = 1
	}
	m.FeatureFlagEnabled.WithLabelValues(flag).Set(value)
}

// RecordPoolStats publishes connection pool statistics
func (m *Metrics) RecordPoolStats(db *sql.DB, rdb *redis.Client) {
	if m == nil {
		return
	}
	if db != nil {
		stats := db.Stats()
		m.DBConnectionsActive.Set(float64(stats.InUse))
		m.DBConnectionsIdle.Set(float64(stats.Idle))
		m.DBConnectionsWait.Set(float64(stats.WaitCount))
	}
	if rdb != nil {
		stats := rdb.PoolStats()
		m.RedisConnectionsActive.Set(float64(stats.TotalConns - stats.IdleConns))
		m.RedisConnectionsIdle.Set(float64(stats.IdleConns))
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Requests are labelled by route template to keep cardinality bounded.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeTemplate(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(serveMux *http.ServeMux, gatherer prometheus.Gatherer) {
	serveMux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
