package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is fixed-width so stored timestamps order lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteConfig contains configuration for the SQLite sink.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteSink is an append-only Sink backed by SQLite. UPDATE and DELETE on the
// audit table are rejected by triggers.
type SQLiteSink struct {
	db         *sql.DB
	config     *SQLiteConfig
	insertStmt *sql.Stmt
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewSQLiteSink opens the database, creates the schema and verifies its version.
func NewSQLiteSink(config *SQLiteConfig, logger *slog.Logger) (*SQLiteSink, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, NewStorageError("sqlite", "open", errors.New("path cannot be empty"))
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = 5
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit.sqlite")

	params := url.Values{}
	params.Set("_busy_timeout", fmt.Sprint(config.BusyTimeout.Milliseconds()))
	if config.WALMode {
		params.Set("_journal_mode", "WAL")
	}
	dsn := "file:" + config.Path + "?" + params.Encode()

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteSink{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit sink initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

func (s *SQLiteSink) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare(insertEntry)
	if err != nil {
		return NewStorageError("sqlite", "prepare", err)
	}
	s.insertStmt = stmt

	return nil
}

// Append implements Sink.
func (s *SQLiteSink) Append(ctx context.Context, entry *Entry) error {
	prepare(entry)

	_, err := s.insertStmt.ExecContext(ctx,
		entry.ID, entry.EventID, entry.AuthorityID, entry.Version,
		entry.CategoryID, entry.IndicatorID, entry.TriggerID, entry.Severity,
		formatTime(entry.FiredAt), entry.Suppressed, nullString(entry.SuppressionReason),
		string(entry.Outcome), nullString(entry.Error), string(entry.Explanation), formatTime(entry.RecordedAt),
	)
	if err != nil {
		return NewStorageError("sqlite", "append", err)
	}
	return nil
}

// Query implements Sink.
func (s *SQLiteSink) Query(ctx context.Context, query *Query) ([]*Entry, error) {
	if query == nil {
		query = &Query{}
	}

	where, args := buildWhereClause(query)

	sqlQuery := "SELECT " + selectColumns + " FROM audit_log"
	if where != "" {
		sqlQuery += " WHERE " + where
	}
	sqlQuery += " ORDER BY fired_at ASC, seq ASC"

	limit := DefaultQueryLimit
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		entry, err := scanRow(rows)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}

	return entries, nil
}

// Count implements Sink.
func (s *SQLiteSink) Count(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}

	where, args := buildWhereClause(query)
	sqlQuery := "SELECT COUNT(*) FROM audit_log"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Close implements Sink. It is safe to call more than once.
func (s *SQLiteSink) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		if s.insertStmt != nil {
			s.insertStmt.Close()
		}
		if err := s.db.Close(); err != nil {
			closeErr = NewStorageError("sqlite", "close", err)
			return
		}
		s.logger.Info("SQLite audit sink closed")
	})
	return closeErr
}

func buildWhereClause(q *Query) (string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, arg any) {
		conditions = append(conditions, cond)
		args = append(args, arg)
	}

	if q.EventID != "" {
		add("event_id = ?", q.EventID)
	}
	if q.AuthorityID != "" {
		add("authority_id = ?", q.AuthorityID)
	}
	if q.CategoryID != "" {
		add("category_id = ?", q.CategoryID)
	}
	if q.TriggerID != "" {
		add("trigger_id = ?", q.TriggerID)
	}
	if q.Outcome != "" {
		add("outcome = ?", string(q.Outcome))
	}
	if q.Suppressed != nil {
		add("suppressed = ?", *q.Suppressed)
	}
	if q.StartTime != nil {
		add("fired_at >= ?", formatTime(*q.StartTime))
	}
	if q.EndTime != nil {
		add("fired_at <= ?", formatTime(*q.EndTime))
	}

	return strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*Entry, error) {
	var (
		e                          Entry
		firedAt, recordedAt        string
		outcome, explanation       string
		suppressionReason, errText sql.NullString
	)

	err := rows.Scan(
		&e.ID, &e.EventID, &e.AuthorityID, &e.Version,
		&e.CategoryID, &e.IndicatorID, &e.TriggerID, &e.Severity,
		&firedAt, &e.Suppressed, &suppressionReason,
		&outcome, &errText, &explanation, &recordedAt,
	)
	if err != nil {
		return nil, err
	}

	if e.FiredAt, err = time.Parse(timeLayout, firedAt); err != nil {
		return nil, fmt.Errorf("parse fired_at: %w", err)
	}
	if e.RecordedAt, err = time.Parse(timeLayout, recordedAt); err != nil {
		return nil, fmt.Errorf("parse recorded_at: %w", err)
	}
	e.SuppressionReason = suppressionReason.String
	e.Error = errText.String
	e.Outcome = Outcome(outcome)
	e.Explanation = []byte(explanation)

	return &e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
