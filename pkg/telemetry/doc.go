// Package telemetry groups Beacon's observability packages.
//
//   - logging: slog construction and per-event context attributes
//   - metrics: Prometheus collector implementing the component observers
//   - tracing: OpenTelemetry spans and W3C trace context propagation
//   - health: liveness and readiness probes for beacon run
//
// None of these are required for routing. Every component defaults to a
// no-op observer, slog.Default() and the global tracer provider.
package telemetry
