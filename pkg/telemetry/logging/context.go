package logging

import (
	"context"
	"log/slog"

	"mercator-hq/beacon/pkg/telemetry/tracing"
)

type contextKey string

const (
	eventIDKey     contextKey = "event_id"
	authorityIDKey contextKey = "authority_id"
)

// WithEventID adds an envelope event ID to the context.
func WithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, eventIDKey, eventID)
}

// GetEventID retrieves the event ID from the context.
func GetEventID(ctx context.Context) string {
	if id, ok := ctx.Value(eventIDKey).(string); ok {
		return id
	}
	return ""
}

// WithAuthorityID adds an authority ID to the context.
func WithAuthorityID(ctx context.Context, authorityID string) context.Context {
	return context.WithValue(ctx, authorityIDKey, authorityID)
}

// GetAuthorityID retrieves the authority ID from the context.
func GetAuthorityID(ctx context.Context) string {
	if id, ok := ctx.Value(authorityIDKey).(string); ok {
		return id
	}
	return ""
}

// contextHandler adds event_id, authority_id and trace_id from the record's
// context when present.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id := GetEventID(ctx); id != "" {
			r.AddAttrs(slog.String("event_id", id))
		}
		if id := GetAuthorityID(ctx); id != "" {
			r.AddAttrs(slog.String("authority_id", id))
		}
		if id := tracing.TraceID(ctx); id != "" {
			r.AddAttrs(slog.String("trace_id", id))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
