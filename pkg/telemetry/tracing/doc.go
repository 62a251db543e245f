// Package tracing provides OpenTelemetry spans for routing and dispatch.
//
// # Overview
//
// Beacon instruments its hot paths through the OpenTelemetry API only. Spans are
// created from the globally registered TracerProvider, so a host process that
// installs an SDK provider (with whatever exporter it prefers) receives beacon's
// spans without further wiring. With no provider installed every span is a
// no-op.
//
// # Spans
//
//	beacon.route            one envelope routed against the catalog
//	beacon.route.trigger    one trigger evaluated (event on the route span)
//	beacon.dispatch         one RouteResult audited and delivered
//
// # Trace Context Propagation
//
// Outgoing webhook requests carry W3C Trace Context headers:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// Setup installs the TraceContext and Baggage propagators globally.
//
// # Attributes
//
// Custom attribute keys use the "beacon.*" namespace, for example
// beacon.category, beacon.trigger and beacon.authority_id.
package tracing
