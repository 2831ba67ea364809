package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(metrics))
	router.HandleFunc("/orgs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}).Methods(http.MethodGet)

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orgs/"+id, nil))
	}

	got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/orgs/{id}", "403"))
	if got != 3 {
		t.Errorf("Expected 3 requests on the route template, got %v", got)
	}
	if n := testutil.CollectAndCount(metrics.HTTPRequestDuration); n != 1 {
		t.Errorf("Expected a single duration series, got %d", n)
	}
}

func TestMetrics_Recorders(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.RecordGateOutcome("organization.update", "forbidden")
	metrics.RecordGateOutcome("organization.update", "forbidden")
	metrics.RecordVerificationCode("telegram", "organization")
	metrics.RecordRateLimited()
	metrics.SetFeatureFlag("extra_messaging_backends_enabled", true)
	metrics.RecordExpiredTokensRemoved(3)
	metrics.RecordExpiredTokensRemoved(0)

	if v := testutil.ToFloat64(metrics.ExpiredTokensRemovedTotal); v != 3 {
		t.Errorf("Expected 3 removed tokens, got %v", v)
	}
	if v := testutil.ToFloat64(metrics.GateOutcomesTotal.WithLabelValues("organization.update", "forbidden")); v != 2 {
		t.Errorf("Expected 2 forbidden outcomes, got %v", v)
	}
	if v := testutil.ToFloat64(metrics.VerificationCodesIssuedTotal.WithLabelValues("telegram", "organization")); v != 1 {
		t.Errorf("Expected 1 issued code, got %v", v)
	}
	if v := testutil.ToFloat64(metrics.VerificationRateLimitedTotal); v != 1 {
		t.Errorf("Expected 1 rate limited request, got %v", v)
	}
	if v := testutil.ToFloat64(metrics.FeatureFlagEnabled.WithLabelValues("extra_messaging_backends_enabled")); v != 1 {
		t.Errorf("Expected flag gauge 1, got %v", v)
	}

	metrics.SetFeatureFlag("extra_messaging_backends_enabled", false)
	if v := testutil.ToFloat64(metrics.FeatureFlagEnabled.WithLabelValues("extra_messaging_backends_enabled")); v != 0 {
		t.Errorf("Expected flag gauge 0, got %v", v)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var metrics *Metrics
	metrics.RecordGateOutcome("a", "b")
	metrics.RecordVerificationCode("a", "b")
	metrics.RecordRateLimited()
	metrics.SetFeatureFlag("a", true)
	metrics.RecordPoolStats(nil, nil)
	metrics.RecordExpiredTokensRemoved(1)
}

func TestMetrics_RecordPoolStats(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock db: %v", err)
	}
	defer db.Close()

	metrics.RecordPoolStats(db, nil)
	if v := testutil.ToFloat64(metrics.DBConnectionsActive); v != 0 {
		t.Errorf("Expected 0 active connections, got %v", v)
	}
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.RecordGateOutcome("organization.read", "proceed")

	serveMux := http.NewServeMux()
	RegisterMetricsEndpoint(serveMux, registry)

	rec := httptest.NewRecorder()
	serveMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `teamgate_gate_outcomes_total{action="organization.read",state="proceed"} 1`) {
		t.Errorf("Expected gate outcome in exposition, got:\n%s", rec.Body.String())
	}
}
