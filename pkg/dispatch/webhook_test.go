package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/beacon/pkg/telemetry/tracing"
)

func testAlert() *Alert {
	return &Alert{
		ID:          "dispatch-1",
		EventID:     "hearing-42",
		AuthorityID: "house-energy",
		Version:     1,
		Title:       "GAO review of HVAC procurement",
		CategoryID:  "oversight",
		TriggerID:   "gao_investigation",
		Severity:    "high",
		Actions:     []string{"notify_analyst"},
		FiredAt:     time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
}

func fastBackoffs() []time.Duration {
	return []time.Duration{time.Millisecond, time.Millisecond}
}

func TestNewWebhookNotifier_EmptyURL(t *testing.T) {
	if _, err := NewWebhookNotifier("", nil, 0); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestWebhookNotifier_Delivers(t *testing.T) {
	tracing.Setup()

	type captured struct {
		alert   Alert
		headers http.Header
	}
	received := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c captured
		c.headers = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&c.alert); err != nil {
			t.Errorf("decode body: %v", err)
		}
		received <- c
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n, err := NewWebhookNotifier(srv.URL, map[string]string{"X-Beacon-Token": "secret"}, time.Second)
	if err != nil {
		t.Fatalf("NewWebhookNotifier() error = %v", err)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))

	if err := n.Notify(ctx, testAlert()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	got := <-received

	tests := []struct {
		header string
		want   string
	}{
		{"Content-Type", "application/json"},
		{"X-Beacon-Token", "secret"},
		{"Idempotency-Key", "dispatch-1"},
		{"Traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
	}
	for _, tt := range tests {
		if v := got.headers.Get(tt.header); v != tt.want {
			t.Errorf("header %s = %q, want %q", tt.header, v, tt.want)
		}
	}
	if got.alert.TriggerID != "gao_investigation" || got.alert.Title != "GAO review of HVAC procurement" {
		t.Errorf("alert body = %+v", got.alert)
	}
}

func TestWebhookNotifier_Retries(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		wantErr      bool
		wantAttempts int32
	}{
		{"first attempt", 0, false, 1},
		{"recovers on third", 2, false, 3},
		{"exhausted", 5, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) <= tt.failures {
					w.WriteHeader(http.StatusBadGateway)
					_, _ = w.Write([]byte("upstream down"))
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			n, err := NewWebhookNotifier(srv.URL, nil, time.Second)
			if err != nil {
				t.Fatalf("NewWebhookNotifier() error = %v", err)
			}
			n.WithBackoffs(fastBackoffs())

			err = n.Notify(context.Background(), testAlert())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Notify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), "status 502") {
				t.Errorf("error should mention status, got %v", err)
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
		})
	}
}

func TestWebhookNotifier_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	n, _ := NewWebhookNotifier(srv.URL, nil, time.Second)
	n.WithBackoffs([]time.Duration{time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := n.Notify(ctx, testAlert())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Notify() error = %v, want context.Canceled", err)
	}
}

func TestTruncateBody(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := truncateBody([]byte(long))
	if len(got) != 203 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncateBody() len = %d", len(got))
	}
	if truncateBody([]byte("short")) != "short" {
		t.Error("short body should be unchanged")
	}
}
