package suppression

import (
	"context"
	"fmt"
	"time"
)

// Reasons reported in a Decision.
const (
	// ReasonCooldownActive means the same trigger fired for the same authority
	// within its cooldown window.
	ReasonCooldownActive = "cooldown_active"

	// ReasonStoreUnavailable means the store could not be read and the manager is
	// configured to fail open.
	ReasonStoreUnavailable = "suppression_store_unavailable"
)

// FailMode selects what Check does when the backend fails.
type FailMode string

const (
	// FailClosed returns the store error to the caller.
	FailClosed FailMode = "fail-closed"

	// FailOpen reports "not suppressed" with ReasonStoreUnavailable.
	FailOpen FailMode = "fail-open"
)

// ParseFailMode validates a fail mode string. Empty selects FailClosed.
func ParseFailMode(s string) (FailMode, error) {
	switch FailMode(s) {
	case "", FailClosed:
		return FailClosed, nil
	case FailOpen:
		return FailOpen, nil
	default:
		return "", fmt.Errorf("invalid fail mode %q (must be %q or %q)", s, FailClosed, FailOpen)
	}
}

// Key identifies a suppression record.
type Key struct {
	TriggerID   string
	AuthorityID string
}

// String renders the key as "trigger/authority".
func (k Key) String() string {
	return k.TriggerID + "/" + k.AuthorityID
}

// Record is the last non-suppressed fire for a key. The cooldown in effect at
// the time of the fire is stored so compaction never expires a live window.
type Record struct {
	TriggerID       string
	AuthorityID     string
	LastFiredAt     time.Time
	LastVersion     int
	CooldownMinutes int
	FireCount       int64
}

// Key returns the record's key.
func (r *Record) Key() Key {
	return Key{TriggerID: r.TriggerID, AuthorityID: r.AuthorityID}
}

// Cooldown is the window recorded with the fire.
func (r *Record) Cooldown() time.Duration {
	return time.Duration(r.CooldownMinutes) * time.Minute
}

// Decision is the outcome of a suppression check.
type Decision struct {
	Suppressed bool   `json:"suppressed"`
	Reason     string `json:"reason,omitempty"`
}

// Backend persists suppression records. Implementations must be safe for
// concurrent use.
type Backend interface {
	// Get returns the record for key, or nil if none exists.
	Get(ctx context.Context, key Key) (*Record, error)

	// Put creates or overwrites the record for rec.Key().
	Put(ctx context.Context, rec *Record) error

	// DeleteExpired removes records whose cooldown ended more than grace before
	// now, returning the number deleted. A record's cooldown is never taken as
	// shorter than minCooldown.
	DeleteExpired(ctx context.Context, now time.Time, minCooldown, grace time.Duration) (int, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}
