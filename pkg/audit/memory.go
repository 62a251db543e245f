package audit

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemorySink keeps entries in memory, in append order. Intended for tests and
// one-shot CLI runs.
type MemorySink struct {
	mu      sync.RWMutex
	entries []*Entry
	closed  bool
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements Sink.
func (s *MemorySink) Append(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStorageError("memory", "append", errors.New("sink closed"))
	}

	prepare(entry)
	entryCopy := *entry
	s.entries = append(s.entries, &entryCopy)
	return nil
}

// Query implements Sink.
func (s *MemorySink) Query(ctx context.Context, query *Query) ([]*Entry, error) {
	if query == nil {
		query = &Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*Entry{}
	for _, e := range s.entries {
		if matches(e, query) {
			entryCopy := *e
			results = append(results, &entryCopy)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FiredAt.Before(results[j].FiredAt)
	})

	start := query.Offset
	if start > len(results) {
		return []*Entry{}, nil
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}

	return results[start:end], nil
}

// Count implements Sink.
func (s *MemorySink) Count(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.entries {
		if matches(e, query) {
			n++
		}
	}
	return n, nil
}

// Close implements Sink.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func matches(e *Entry, q *Query) bool {
	if q.EventID != "" && e.EventID != q.EventID {
		return false
	}
	if q.AuthorityID != "" && e.AuthorityID != q.AuthorityID {
		return false
	}
	if q.CategoryID != "" && e.CategoryID != q.CategoryID {
		return false
	}
	if q.TriggerID != "" && e.TriggerID != q.TriggerID {
		return false
	}
	if q.Outcome != "" && e.Outcome != q.Outcome {
		return false
	}
	if q.Suppressed != nil && e.Suppressed != *q.Suppressed {
		return false
	}
	if q.StartTime != nil && e.FiredAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && e.FiredAt.After(*q.EndTime) {
		return false
	}
	return true
}
