// Package suppression implements version-aware cooldowns for trigger fires.
//
// A Record is kept per (trigger, authority) pair holding the time and content
// version of the last delivered fire. Manager.Check consults it before an
// alert is sent; Manager.RecordFire updates it after delivery succeeded.
//
// Two backends are provided:
//
//   - MemoryBackend: a mutex-guarded map for single-process deployments.
//   - SQLiteBackend: a table keyed by (trigger_id, authority_id) that survives
//     restarts.
//
// Store failures are handled per FailMode. FailClosed (the default) returns
// the error so the caller can stop; FailOpen reports "not suppressed" with
// ReasonStoreUnavailable.
//
// Compactor runs Manager.Compact on a cron schedule to drop records whose
// cooldown ended more than a grace period ago.
package suppression
