package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanRoute      = "beacon.route"
	SpanRouteBatch = "beacon.route_batch"
	SpanDispatch   = "beacon.dispatch"

	EventTriggerEvaluated = "beacon.trigger_evaluated"
)

// Attribute keys.
const (
	AttrEventID     = "beacon.event_id"
	AttrAuthorityID = "beacon.authority_id"
	AttrVersion     = "beacon.version"

	AttrCategory  = "beacon.category"
	AttrIndicator = "beacon.indicator"
	AttrTrigger   = "beacon.trigger"

	AttrPassed      = "beacon.passed"
	AttrSuppressed  = "beacon.suppressed"
	AttrSeverity    = "beacon.severity"
	AttrResultCount = "beacon.result_count"
	AttrBatchSize   = "beacon.batch_size"

	AttrNotifier       = "beacon.notifier"
	AttrDispatchStatus = "beacon.dispatch.status"

	AttrErrorMessage = "error.message"
)

// EnvelopeAttributes describes the envelope being routed.
func EnvelopeAttributes(eventID, authorityID string, version int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrEventID, eventID),
		attribute.String(AttrAuthorityID, authorityID),
		attribute.Int(AttrVersion, version),
	}
}

// TriggerAttributes describes one evaluated trigger.
func TriggerAttributes(categoryID, indicatorID, triggerID string, passed bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCategory, categoryID),
		attribute.String(AttrIndicator, indicatorID),
		attribute.String(AttrTrigger, triggerID),
		attribute.Bool(AttrPassed, passed),
	}
}

// AddEvent adds a named event to span.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
