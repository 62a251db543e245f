// Package router decides which triggers fire for an envelope.
//
// For every category in load order, every indicator whose gate passes, and
// every trigger whose condition passes, the router looks up the trigger's
// routing rule, asks the suppression manager whether the trigger is in an
// active cooldown for the envelope's authority, and emits a RouteResult.
// Results are not sorted by priority.
//
// The router does not call RecordFire. Callers record a fire only after the
// alert has been delivered (see package dispatch), so a transport outage does
// not consume the cooldown window.
//
// Basic usage:
//
//	r := router.New(catalog, engine.NewEvaluator(nil), manager, logger)
//	results, err := r.Route(ctx, env)
package router
