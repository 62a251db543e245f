package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mercator-hq/beacon/pkg/audit"
	"mercator-hq/beacon/pkg/config"
)

type fixedCount int

func (f fixedCount) Count() int { return int(f) }

type storeCount struct{ err error }

func (s storeCount) Count(context.Context) (int, error) { return 0, s.err }

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "default", timeout: 0, want: 2 * time.Second},
		{name: "negative", timeout: -time.Second, want: 2 * time.Second},
		{name: "custom", timeout: 10 * time.Second, want: 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(tt.timeout)
			if checker.checkTimeout != tt.want {
				t.Errorf("checkTimeout = %v, want %v", checker.checkTimeout, tt.want)
			}
		})
	}
}

func TestChecker_RegisterAndList(t *testing.T) {
	checker := New(time.Second)
	checker.RegisterCheck("suppression", func(context.Context) error { return nil })
	checker.RegisterCheck("catalog", func(context.Context) error { return nil })
	checker.RegisterCheck("audit", func(context.Context) error { return nil })
	checker.UnregisterCheck("audit")

	if diff := cmp.Diff([]string{"catalog", "suppression"}, checker.ListChecks()); diff != "" {
		t.Errorf("ListChecks() mismatch (-want +got):\n%s", diff)
	}
}

func TestChecker_CheckReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checks",
			checks:     nil,
			wantStatus: StatusReady,
			wantChecks: map[string]string{},
		},
		{
			name: "all pass",
			checks: map[string]CheckFunc{
				"catalog":     CatalogCheck(fixedCount(2)),
				"suppression": SuppressionCheck(storeCount{}),
			},
			wantStatus: StatusReady,
			wantChecks: map[string]string{"catalog": StatusOK, "suppression": StatusOK},
		},
		{
			name: "empty catalog",
			checks: map[string]CheckFunc{
				"catalog":     CatalogCheck(fixedCount(0)),
				"suppression": SuppressionCheck(storeCount{}),
			},
			wantStatus: StatusDegraded,
			wantChecks: map[string]string{"catalog": StatusUnhealthy, "suppression": StatusOK},
		},
		{
			name: "store failure",
			checks: map[string]CheckFunc{
				"suppression": SuppressionCheck(storeCount{err: errors.New("database is locked")}),
			},
			wantStatus: StatusDegraded,
			wantChecks: map[string]string{"suppression": StatusUnhealthy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := New(time.Second)
			for name, check := range tt.checks {
				checker.RegisterCheck(name, check)
			}

			status := checker.CheckReadiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}

			got := make(map[string]string, len(status.Checks))
			for name, result := range status.Checks {
				got[name] = result.Status
			}
			if diff := cmp.Diff(tt.wantChecks, got); diff != "" {
				t.Errorf("check statuses mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestChecker_CheckTimeout(t *testing.T) {
	checker := New(20 * time.Millisecond)
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	})

	status := checker.CheckReadiness(context.Background())
	result := status.Checks["slow"]
	if result.Status != StatusUnhealthy {
		t.Fatalf("slow check status = %q, want %q", result.Status, StatusUnhealthy)
	}
	if result.Message != ErrCheckTimeout.Error() {
		t.Errorf("message = %q, want %q", result.Message, ErrCheckTimeout.Error())
	}
}

type brokenSink struct {
	*audit.MemorySink
}

func (brokenSink) Count(context.Context, *audit.Query) (int64, error) {
	return 0, errors.New("disk I/O error")
}

func TestAuditCheck(t *testing.T) {
	if err := AuditCheck(audit.NewMemorySink())(context.Background()); err != nil {
		t.Fatalf("AuditCheck() on healthy sink = %v, want nil", err)
	}

	err := AuditCheck(brokenSink{audit.NewMemorySink()})(context.Background())
	if err == nil || err.Error() != "audit sink: disk I/O error" {
		t.Errorf("AuditCheck() on broken sink = %v, want wrapped sink error", err)
	}
}

func TestHandlers(t *testing.T) {
	checker := New(time.Second)
	catalogSize := fixedCount(0)
	checker.RegisterCheck("catalog", CatalogCheck(&catalogSize))

	mux := http.NewServeMux()
	Register(mux, checker, config.HealthConfig{}, VersionInfo{Version: "1.2.0", Commit: "abc123"})

	tests := []struct {
		name     string
		method   string
		path     string
		setup    func()
		wantCode int
		wantBody string
	}{
		{name: "liveness", method: http.MethodGet, path: "/healthz", wantCode: http.StatusOK, wantBody: StatusOK},
		{name: "readiness empty catalog", method: http.MethodGet, path: "/readyz", wantCode: http.StatusServiceUnavailable, wantBody: StatusDegraded},
		{
			name:     "readiness loaded",
			method:   http.MethodGet,
			path:     "/readyz",
			setup:    func() { catalogSize = 3 },
			wantCode: http.StatusOK,
			wantBody: StatusReady,
		},
		{name: "head liveness", method: http.MethodHead, path: "/healthz", wantCode: http.StatusOK},
		{name: "post rejected", method: http.MethodPost, path: "/healthz", wantCode: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody == "" {
				return
			}

			var body HealthStatus
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("body status = %q, want %q", body.Status, tt.wantBody)
			}
		})
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.2.0", "abc123", "2026-03-04").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if info.Version != "1.2.0" || info.Commit != "abc123" || info.GoVersion == "" {
		t.Errorf("unexpected version info: %+v", info)
	}
}
