package suppression

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestSQLite(t *testing.T) *SQLiteBackend {
	t.Helper()

	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "suppression.db"))
	if err != nil {
		t.Fatalf("NewSQLiteBackend() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSQLiteBackend_GetPut(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)

	key := Key{TriggerID: "gao_report", AuthorityID: "hearing-1"}
	got, err := b.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get() on empty table = %+v, want nil", got)
	}

	fired := time.Date(2025, 3, 4, 12, 0, 0, 123, time.UTC)
	rec := &Record{
		TriggerID:       key.TriggerID,
		AuthorityID:     key.AuthorityID,
		LastFiredAt:     fired,
		LastVersion:     2,
		CooldownMinutes: 60,
		FireCount:       1,
	}
	if err := b.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err = b.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	// Overwrite.
	rec.LastVersion = 3
	rec.FireCount = 2
	if err := b.Put(ctx, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, _ = b.Get(ctx, key)
	if got.LastVersion != 3 || got.FireCount != 2 {
		t.Errorf("after overwrite got %+v", got)
	}

	n, err := b.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestSQLiteBackend_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)
	base := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

	records := []*Record{
		{TriggerID: "a", AuthorityID: "x", LastFiredAt: base, CooldownMinutes: 10},
		{TriggerID: "b", AuthorityID: "x", LastFiredAt: base, CooldownMinutes: 24 * 60},
		{TriggerID: "c", AuthorityID: "x", LastFiredAt: base.Add(90 * time.Minute), CooldownMinutes: 10},
	}
	for _, r := range records {
		if err := b.Put(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	// now = base+2h, grace 30m: only "a" (expired at base+10m, +30m grace) goes.
	deleted, err := b.DeleteExpired(ctx, base.Add(2*time.Hour), 0, 30*time.Minute)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteExpired() = %d, want 1", deleted)
	}

	for _, id := range []string{"b", "c"} {
		rec, err := b.Get(ctx, Key{TriggerID: id, AuthorityID: "x"})
		if err != nil || rec == nil {
			t.Errorf("record %s missing after compaction: %v", id, err)
		}
	}
}

func TestSQLiteBackend_DeleteExpiredCooldownFloor(t *testing.T) {
	ctx := context.Background()
	b := newTestSQLite(t)
	base := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

	if err := b.Put(ctx, &Record{TriggerID: "a", AuthorityID: "x", LastFiredAt: base, CooldownMinutes: 60}); err != nil {
		t.Fatal(err)
	}

	// The recorded hour plus grace has passed, but a 24h floor keeps the record.
	deleted, err := b.DeleteExpired(ctx, base.Add(3*time.Hour), 24*time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if deleted != 0 {
		t.Errorf("DeleteExpired() = %d, want 0 under the floor", deleted)
	}

	deleted, err = b.DeleteExpired(ctx, base.Add(26*time.Hour), 24*time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("DeleteExpired() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("DeleteExpired() = %d, want 1 once the floor has passed", deleted)
	}
}

func TestSQLiteBackend_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "suppression.db")

	b, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	m := NewManager(b, Config{}, nil)
	if err := m.RecordFire(ctx, "t", "a", 1, 60); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}

	b2, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b2.Close()

	m2 := NewManager(b2, Config{}, nil)
	d, err := m2.Check(ctx, "t", "a", 1, 60, true)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Suppressed {
		t.Error("cooldown did not survive reopen")
	}
}

func TestSQLiteBackend_CloseTwice(t *testing.T) {
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestNewSQLiteBackend_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteBackend(""); err == nil {
		t.Error("NewSQLiteBackend(\"\") should fail")
	}
}
