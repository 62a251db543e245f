package suppression

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config configures a Manager.
type Config struct {
	// FailMode controls Check when the backend errors. Default: FailClosed.
	FailMode FailMode

	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time

	// CooldownFloor returns the longest cooldown any loaded routing rule
	// applies. Compaction keeps every record at least that long, since Check
	// uses the rule's current cooldown rather than the one stored at fire time.
	// Default: no floor.
	CooldownFloor func() time.Duration
}

// Manager decides whether a trigger firing for an authority falls inside an
// active cooldown window, and records fires that were actually delivered.
//
// Check and RecordFire are individually safe for concurrent use. Callers that
// need check-then-record to be atomic for one key hold the lock returned by
// Lock around both calls.
type Manager struct {
	backend  Backend
	failMode FailMode
	now      func() time.Time
	floor    func() time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[Key]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a manager over backend. A nil backend selects a fresh
// MemoryBackend.
func NewManager(backend Backend, cfg Config, logger *slog.Logger) *Manager {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if cfg.FailMode == "" {
		cfg.FailMode = FailClosed
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.CooldownFloor == nil {
		cfg.CooldownFloor = func() time.Duration { return 0 }
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		backend:  backend,
		failMode: cfg.FailMode,
		now:      cfg.Clock,
		floor:    cfg.CooldownFloor,
		logger:   logger.With("component", "suppression"),
		locks:    make(map[Key]*keyLock),
	}
}

// FailMode returns the configured failure policy.
func (m *Manager) FailMode() FailMode {
	return m.failMode
}

// Check reports whether a fire of triggerID for authorityID at the given
// content version is suppressed.
//
// Without a stored record the fire is not suppressed. When versionAware is set
// and version differs from the recorded one, the content changed and the fire
// is not suppressed. Otherwise it is suppressed while now is before the last
// fire plus cooldownMinutes.
func (m *Manager) Check(ctx context.Context, triggerID, authorityID string, version, cooldownMinutes int, versionAware bool) (Decision, error) {
	rec, err := m.backend.Get(ctx, Key{TriggerID: triggerID, AuthorityID: authorityID})
	if err != nil {
		if m.failMode == FailOpen {
			m.logger.Warn("Suppression store unavailable, failing open",
				"trigger_id", triggerID,
				"authority_id", authorityID,
				"error", err,
			)
			return Decision{Reason: ReasonStoreUnavailable}, nil
		}
		return Decision{}, err
	}

	if rec == nil {
		return Decision{}, nil
	}

	if versionAware && version != rec.LastVersion {
		m.logger.Debug("Version changed, cooldown bypassed",
			"trigger_id", triggerID,
			"authority_id", authorityID,
			"version", version,
			"last_version", rec.LastVersion,
		)
		return Decision{}, nil
	}

	window := time.Duration(cooldownMinutes) * time.Minute
	if m.now().Before(rec.LastFiredAt.Add(window)) {
		return Decision{Suppressed: true, Reason: ReasonCooldownActive}, nil
	}

	return Decision{}, nil
}

// RecordFire stores a delivered fire, overwriting the previous record for the
// key. It must only be called once the alert actually reached its transport.
func (m *Manager) RecordFire(ctx context.Context, triggerID, authorityID string, version, cooldownMinutes int) error {
	key := Key{TriggerID: triggerID, AuthorityID: authorityID}

	var fireCount int64 = 1
	prev, err := m.backend.Get(ctx, key)
	switch {
	case err != nil:
		m.logger.Warn("Failed to read previous fire, resetting fire count",
			"trigger_id", triggerID,
			"authority_id", authorityID,
			"error", err,
		)
	case prev != nil:
		fireCount = prev.FireCount + 1
	}

	rec := &Record{
		TriggerID:       triggerID,
		AuthorityID:     authorityID,
		LastFiredAt:     m.now().UTC(),
		LastVersion:     version,
		CooldownMinutes: cooldownMinutes,
		FireCount:       fireCount,
	}
	if err := m.backend.Put(ctx, rec); err != nil {
		return err
	}

	m.logger.Debug("Fire recorded",
		"trigger_id", triggerID,
		"authority_id", authorityID,
		"version", version,
		"cooldown_minutes", cooldownMinutes,
	)
	return nil
}

// Lock acquires the per-key lock for (triggerID, authorityID) and returns the
// function that releases it.
func (m *Manager) Lock(triggerID, authorityID string) (unlock func()) {
	key := Key{TriggerID: triggerID, AuthorityID: authorityID}

	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// Compact deletes records whose cooldown ended more than grace ago. The
// cooldown is the longer of the recorded one and the configured floor.
func (m *Manager) Compact(ctx context.Context, grace time.Duration) (int, error) {
	deleted, err := m.backend.DeleteExpired(ctx, m.now(), m.floor(), grace)
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Count returns the number of stored records.
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.backend.Count(ctx)
}

// Close closes the backend.
func (m *Manager) Close() error {
	return m.backend.Close()
}
