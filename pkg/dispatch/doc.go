// Package dispatch delivers routed alerts and keeps the audit log.
//
// For every RouteResult the Dispatcher writes exactly one audit entry. A
// result is sent to the Notifier only when it is not suppressed and its
// severity is at least Config.MinSeverity. Before sending, the dispatcher
// takes the suppression manager's per-key lock and checks suppression again,
// so two deliveries for the same (trigger, authority) racing through one
// process cannot both fire. The fire is recorded only after the notifier
// returns nil; a failed delivery leaves the cooldown window unconsumed.
//
// Two notifiers are provided: LogNotifier, which writes alerts to slog, and
// WebhookNotifier, which POSTs the Alert as JSON with retry backoff and W3C
// trace context headers.
package dispatch
