package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/beacon/pkg/audit"
	"mercator-hq/beacon/pkg/config"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Path:      "/metrics",
		Namespace: "beacon",
	}
}

func TestCollector_RouteMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	t.Run("trigger evaluations", func(t *testing.T) {
		collector.TriggerEvaluated("oversight", "gao_investigation", true)
		collector.TriggerEvaluated("oversight", "gao_investigation", true)
		collector.TriggerEvaluated("oversight", "gao_investigation", false)

		passed := testutil.ToFloat64(collector.routeMetrics.evaluations.WithLabelValues("oversight", "gao_investigation", "passed"))
		if passed != 2 {
			t.Errorf("passed = %v, want 2", passed)
		}
		failed := testutil.ToFloat64(collector.routeMetrics.evaluations.WithLabelValues("oversight", "gao_investigation", "failed"))
		if failed != 1 {
			t.Errorf("failed = %v, want 1", failed)
		}
	})

	t.Run("suppressed", func(t *testing.T) {
		collector.RouteSuppressed("gao_investigation", "cooldown")
		count := testutil.ToFloat64(collector.routeMetrics.suppressedVec.WithLabelValues("gao_investigation", "cooldown"))
		if count != 1 {
			t.Errorf("suppressed = %v, want 1", count)
		}
	})

	t.Run("route completed", func(t *testing.T) {
		collector.RouteCompleted(2*time.Millisecond, 3, nil)
		collector.RouteCompleted(time.Millisecond, 1, errors.New("boom"))

		if got := testutil.ToFloat64(collector.routeMetrics.results); got != 4 {
			t.Errorf("results = %v, want 4", got)
		}
		if got := testutil.ToFloat64(collector.routeMetrics.errors); got != 1 {
			t.Errorf("errors = %v, want 1", got)
		}
		if got := testutil.CollectAndCount(collector.routeMetrics.duration); got != 1 {
			t.Errorf("duration series = %d, want 1", got)
		}
	})
}

func TestCollector_DispatchMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.DispatchCompleted("webhook", audit.OutcomeDelivered)
	collector.DispatchCompleted("webhook", audit.OutcomeDelivered)
	collector.DispatchCompleted("webhook", audit.OutcomeFailed)
	collector.AuditWriteFailed()

	tests := []struct {
		status string
		want   float64
	}{
		{status: string(audit.OutcomeDelivered), want: 2},
		{status: string(audit.OutcomeFailed), want: 1},
		{status: string(audit.OutcomeSuppressed), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got := testutil.ToFloat64(collector.dispatchMetrics.dispatchTotal.WithLabelValues("webhook", tt.status))
			if got != tt.want {
				t.Errorf("dispatch_total{status=%q} = %v, want %v", tt.status, got, tt.want)
			}
		})
	}

	if got := testutil.ToFloat64(collector.dispatchMetrics.auditFailures); got != 1 {
		t.Errorf("audit failures = %v, want 1", got)
	}
}

func TestCollector_SchemaMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.SchemaLoadFailed("broken")
	collector.SchemasLoaded(3)
	collector.SchemasLoaded(4)

	if got := testutil.ToFloat64(collector.schemaMetrics.loadFailures.WithLabelValues("broken")); got != 1 {
		t.Errorf("load failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.schemaMetrics.categories); got != 4 {
		t.Errorf("categories = %v, want 4", got)
	}
	if got := testutil.ToFloat64(collector.schemaMetrics.reloads); got != 2 {
		t.Errorf("reloads = %v, want 2", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.TriggerEvaluated("oversight", "gao_investigation", true)
	collector.DispatchCompleted("log", audit.OutcomeDelivered)
	collector.AuditWriteFailed()

	if got := testutil.ToFloat64(collector.routeMetrics.evaluations.WithLabelValues("oversight", "gao_investigation", "passed")); got != 0 {
		t.Errorf("evaluations = %v, want 0 when disabled", got)
	}
	if got := testutil.ToFloat64(collector.dispatchMetrics.auditFailures); got != 0 {
		t.Errorf("audit failures = %v, want 0 when disabled", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.DispatchCompleted("log", audit.OutcomeDelivered)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `beacon_dispatch_total{notifier="log",status="delivered"} 1`) {
		t.Errorf("metrics output missing dispatch counter:\n%s", body)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow(fmt.Sprintf("set-%d", i)) {
			t.Fatalf("Allow(set-%d) = false, want true", i)
		}
	}
	if limiter.Allow("set-3") {
		t.Error("Allow(set-3) = true, want false past the limit")
	}
	if !limiter.Allow("set-0") {
		t.Error("Allow(set-0) = false, want true for a known label set")
	}
	if got := limiter.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
}

func TestCollector_CardinalityOverflow(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.cardinalityLimiter = NewCardinalityLimiter(1)

	collector.TriggerEvaluated("oversight", "first", true)
	collector.TriggerEvaluated("oversight", "second", true)

	if got := testutil.ToFloat64(collector.routeMetrics.evaluations.WithLabelValues("oversight", "other", "passed")); got != 1 {
		t.Errorf("overflow evaluations = %v, want 1", got)
	}
}
