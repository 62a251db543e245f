// Package logging builds the structured logger used throughout Beacon.
//
// New returns a *slog.Logger writing JSON or text. Components receive the
// logger through their constructors and scope it with
// logger.With("component", name).
//
// Records logged with a context pick up identifiers stored in it:
//
//	ctx = logging.WithEventID(ctx, env.EventID())
//	logger.InfoContext(ctx, "Envelope routed", "results", n)
//	// {"msg":"Envelope routed","results":2,"event_id":"hearing-42","trace_id":"4bf9..."}
package logging
