package suppression

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend persists suppression records in a SQLite database so cooldown
// windows survive restarts.
type SQLiteBackend struct {
	db                 *sql.DB
	path               string
	checkpointInterval time.Duration
	done               chan struct{}
	closeOnce          sync.Once

	getStmt    *sql.Stmt
	putStmt    *sql.Stmt
	expireStmt *sql.Stmt
	countStmt  *sql.Stmt
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file.
	Path string

	// CheckpointInterval is how often the WAL is checkpointed.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteBackend opens (or creates) the database at path with default settings.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteConfig{Path: path})
}

// NewSQLiteBackendWithConfig opens the database described by cfg.
func NewSQLiteBackendWithConfig(cfg SQLiteConfig) (*SQLiteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	params.Add("_pragma", "synchronous(NORMAL)")
	dsn := cfg.Path + "?" + params.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteBackend{
		db:                 db,
		path:               cfg.Path,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go s.checkpointLoop()

	return s, nil
}

func (s *SQLiteBackend) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS suppression_records (
		trigger_id TEXT NOT NULL,
		authority_id TEXT NOT NULL,
		last_fired_at INTEGER NOT NULL,
		last_version INTEGER NOT NULL,
		cooldown_minutes INTEGER NOT NULL,
		fire_count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (trigger_id, authority_id)
	);

	CREATE INDEX IF NOT EXISTS idx_suppression_last_fired ON suppression_records(last_fired_at);
	`)
	return err
}

func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.getStmt, err = s.db.Prepare(`
		SELECT last_fired_at, last_version, cooldown_minutes, fire_count
		FROM suppression_records
		WHERE trigger_id = ? AND authority_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO suppression_records (trigger_id, authority_id, last_fired_at, last_version, cooldown_minutes, fire_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (trigger_id, authority_id) DO UPDATE SET
			last_fired_at = excluded.last_fired_at,
			last_version = excluded.last_version,
			cooldown_minutes = excluded.cooldown_minutes,
			fire_count = excluded.fire_count
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}

	s.expireStmt, err = s.db.Prepare(`
		DELETE FROM suppression_records
		WHERE last_fired_at + MAX(cooldown_minutes * 60000000000, ?) + ? < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare expire statement: %w", err)
	}

	s.countStmt, err = s.db.Prepare(`SELECT COUNT(*) FROM suppression_records`)
	if err != nil {
		return fmt.Errorf("failed to prepare count statement: %w", err)
	}

	return nil
}

func (s *SQLiteBackend) storeError(op string, err error) error {
	return &StoreError{Backend: "sqlite", Operation: op, Cause: err}
}

// Get implements Backend.
func (s *SQLiteBackend) Get(ctx context.Context, key Key) (*Record, error) {
	var (
		lastFired int64
		rec       = Record{TriggerID: key.TriggerID, AuthorityID: key.AuthorityID}
	)

	err := s.getStmt.QueryRowContext(ctx, key.TriggerID, key.AuthorityID).Scan(
		&lastFired,
		&rec.LastVersion,
		&rec.CooldownMinutes,
		&rec.FireCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storeError("get", err)
	}

	rec.LastFiredAt = time.Unix(0, lastFired).UTC()
	return &rec, nil
}

// Put implements Backend.
func (s *SQLiteBackend) Put(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("record cannot be nil")
	}

	_, err := s.putStmt.ExecContext(ctx,
		rec.TriggerID,
		rec.AuthorityID,
		rec.LastFiredAt.UnixNano(),
		rec.LastVersion,
		rec.CooldownMinutes,
		rec.FireCount,
	)
	if err != nil {
		return s.storeError("put", err)
	}
	return nil
}

// DeleteExpired implements Backend.
func (s *SQLiteBackend) DeleteExpired(ctx context.Context, now time.Time, minCooldown, grace time.Duration) (int, error) {
	result, err := s.expireStmt.ExecContext(ctx, minCooldown.Nanoseconds(), grace.Nanoseconds(), now.UnixNano())
	if err != nil {
		return 0, s.storeError("delete_expired", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, s.storeError("delete_expired", err)
	}
	return int(deleted), nil
}

// Count implements Backend.
func (s *SQLiteBackend) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.countStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, s.storeError("count", err)
	}
	return n, nil
}

// Close implements Backend. It is safe to call more than once.
func (s *SQLiteBackend) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{s.getStmt, s.putStmt, s.expireStmt, s.countStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}

		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		closeErr = s.db.Close()
	})

	return closeErr
}

func (s *SQLiteBackend) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
