package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    recorded_at INTEGER NOT NULL,
    source TEXT NOT NULL,
    request_id TEXT,
    command TEXT NOT NULL,
    uid INTEGER NOT NULL,
    rate INTEGER NOT NULL,
    outcome TEXT NOT NULL,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON audit_log(recorded_at);
CREATE INDEX IF NOT EXISTS idx_audit_uid ON audit_log(uid);
`

// SQLiteConfig contains configuration for the SQLite audit store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore writes audit entries to a SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	appendStmt *sql.Stmt
	logger     *slog.Logger
}

// NewSQLiteStore opens the database at cfg.Path and creates the schema.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, newStorageError("sqlite", "open", fmt.Errorf("path cannot be empty"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "audit.sqlite")

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, newStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, newStorageError("sqlite", "enable_wal", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", cfg.BusyTimeout.Milliseconds())); err != nil {
		db.Close()
		return nil, newStorageError("sqlite", "set_busy_timeout", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, newStorageError("sqlite", "create_schema", err)
	}

	appendStmt, err := db.Prepare(`
		INSERT INTO audit_log (id, recorded_at, source, request_id, command, uid, rate, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, newStorageError("sqlite", "prepare", err)
	}

	logger.Info("audit store initialized", "path", cfg.Path)

	return &SQLiteStore{db: db, appendStmt: appendStmt, logger: logger}, nil
}

// Append writes a single entry.
func (s *SQLiteStore) Append(ctx context.Context, entry *Entry) error {
	_, err := s.appendStmt.ExecContext(ctx,
		entry.ID,
		entry.Time.UnixNano(),
		entry.Source,
		nullString(entry.RequestID),
		entry.Command,
		entry.UID,
		entry.Rate,
		string(entry.Outcome),
		nullString(entry.Error),
	)
	if err != nil {
		return newStorageError("sqlite", "append", err)
	}
	return nil
}

// Query returns entries matching filter, newest first.
func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]*Entry, error) {
	var (
		where []string
		args  []any
	)
	if !filter.Since.IsZero() {
		where = append(where, "recorded_at >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if filter.UID != nil {
		where = append(where, "uid = ?")
		args = append(args, *filter.UID)
	}
	if filter.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}

	query := "SELECT id, recorded_at, source, request_id, command, uid, rate, outcome, error FROM audit_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at DESC LIMIT ?"
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e          Entry
			recordedAt int64
			requestID  sql.NullString
			outcome    string
			errText    sql.NullString
		)
		if err := rows.Scan(&e.ID, &recordedAt, &e.Source, &requestID, &e.Command, &e.UID, &e.Rate, &outcome, &errText); err != nil {
			return nil, newStorageError("sqlite", "scan", err)
		}
		e.Time = time.Unix(0, recordedAt)
		e.RequestID = requestID.String
		e.Outcome = Outcome(outcome)
		e.Error = errText.String
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError("sqlite", "query", err)
	}

	return entries, nil
}

// Prune deletes entries older than before.
func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM audit_log WHERE recorded_at < ?", before.UnixNano())
	if err != nil {
		return 0, newStorageError("sqlite", "prune", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, newStorageError("sqlite", "prune", err)
	}
	return deleted, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.appendStmt.Close()
	return s.db.Close()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
