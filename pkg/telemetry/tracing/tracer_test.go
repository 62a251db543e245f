package tracing

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func remoteContext(t *testing.T) context.Context {
	t.Helper()

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	if err != nil {
		t.Fatal(err)
	}
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	if err != nil {
		t.Fatal(err)
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestInjectExtract(t *testing.T) {
	Setup()
	ctx := remoteContext(t)

	headers := http.Header{}
	Inject(ctx, headers)

	want := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	if got := headers.Get("traceparent"); got != want {
		t.Fatalf("traceparent = %q, want %q", got, want)
	}

	back := Extract(context.Background(), headers)
	if got := TraceID(back); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("TraceID(extracted) = %q", got)
	}
}

func TestTraceID_Empty(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Errorf("TraceID(background) = %q, want empty", got)
	}
}

func TestTracer_StartNoop(t *testing.T) {
	tests := []struct {
		name   string
		tracer *Tracer
	}{
		{name: "global", tracer: New()},
		{name: "noop", tracer: Noop()},
		{name: "nil provider", tracer: NewWithProvider(nil)},
		{name: "nil tracer", tracer: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, span := tt.tracer.Start(context.Background(), SpanRoute)
			defer span.End()

			if ctx == nil {
				t.Fatal("Start() returned nil context")
			}
			span.SetAttributes(EnvelopeAttributes("evt-1", "auth-1", 1)...)
			AddEvent(span, EventTriggerEvaluated, TriggerAttributes("c", "i", "t", true)...)
			SetError(span, errors.New("boom"))
			SetStatus(span, nil)
		})
	}
}
