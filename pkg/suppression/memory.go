package suppression

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryBackend keeps records in a map. It is the default backend for a single
// process; records are lost on exit.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[Key]Record
	closed  bool
}

// NewMemoryBackend creates an empty memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[Key]Record)}
}

var errClosed = errors.New("backend closed")

// Get implements Backend.
func (m *MemoryBackend) Get(ctx context.Context, key Key) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, &StoreError{Backend: "memory", Operation: "get", Cause: errClosed}
	}

	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Put implements Backend.
func (m *MemoryBackend) Put(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return &StoreError{Backend: "memory", Operation: "put", Cause: errClosed}
	}

	m.records[rec.Key()] = *rec
	return nil
}

// DeleteExpired implements Backend.
func (m *MemoryBackend) DeleteExpired(ctx context.Context, now time.Time, minCooldown, grace time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, &StoreError{Backend: "memory", Operation: "delete_expired", Cause: errClosed}
	}

	deleted := 0
	for key, rec := range m.records {
		cooldown := max(rec.Cooldown(), minCooldown)
		if rec.LastFiredAt.Add(cooldown + grace).Before(now) {
			delete(m.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// Count implements Backend.
func (m *MemoryBackend) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records), nil
}

// Close implements Backend. Later calls fail with a StoreError.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = nil
	return nil
}
