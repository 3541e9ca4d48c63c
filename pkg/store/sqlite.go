package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration
}

// SQLiteBackend stores limits in a local SQLite database.
type SQLiteBackend struct {
	db                 *sql.DB
	checkpointInterval time.Duration
	done               chan struct{}
	closeOnce          sync.Once

	saveStmt    *sql.Stmt
	loadStmt    *sql.Stmt
	listStmt    *sql.Stmt
	disableStmt *sql.Stmt
}

// NewSQLiteBackend opens (creating if needed) the database at cfg.Path.
func NewSQLiteBackend(cfg SQLiteConfig) (*SQLiteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

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
	CREATE TABLE IF NOT EXISTS uid_limits (
		uid INTEGER PRIMARY KEY,
		rate INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_uid_limits_created ON uid_limits(created_at);
	`)
	return err
}

func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO uid_limits (uid, rate, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (uid) DO UPDATE SET
			rate = excluded.rate,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.loadStmt, err = s.db.Prepare(`
		SELECT uid, rate, created_at, updated_at FROM uid_limits WHERE uid = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT uid, rate, created_at, updated_at FROM uid_limits ORDER BY created_at, uid
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.disableStmt, err = s.db.Prepare(`
		UPDATE uid_limits SET rate = -1, updated_at = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare disable statement: %w", err)
	}

	return nil
}

// Save creates or replaces the limit for l.UID. An existing row keeps its
// creation time.
func (s *SQLiteBackend) Save(ctx context.Context, l *Limit) error {
	if l == nil {
		return fmt.Errorf("limit cannot be nil")
	}

	stored := *l
	stamp(&stored, time.Now())

	_, err := s.saveStmt.ExecContext(ctx,
		stored.UID,
		stored.Rate,
		stored.CreatedAt.UnixNano(),
		stored.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save limit: %w", err)
	}
	return nil
}

// Load returns the limit for uid, or nil if none is stored.
func (s *SQLiteBackend) Load(ctx context.Context, uid int64) (*Limit, error) {
	l, err := scanLimit(s.loadStmt.QueryRowContext(ctx, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load limit: %w", err)
	}
	return l, nil
}

// List returns every stored limit ordered by creation time.
func (s *SQLiteBackend) List(ctx context.Context) ([]*Limit, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list limits: %w", err)
	}
	defer rows.Close()

	var limits []*Limit
	for rows.Next() {
		l, err := scanLimit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		limits = append(limits, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return limits, nil
}

// DisableAll sets every stored rate to -1.
func (s *SQLiteBackend) DisableAll(ctx context.Context) (int, error) {
	result, err := s.disableStmt.ExecContext(ctx, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to disable limits: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}

// Ping checks the database connection.
func (s *SQLiteBackend) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close stops the checkpoint loop and closes the database.
// Close is idempotent.
func (s *SQLiteBackend) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{s.saveStmt, s.loadStmt, s.listStmt, s.disableStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}

		// Final checkpoint before closing
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLimit(row rowScanner) (*Limit, error) {
	var (
		l                    Limit
		createdAt, updatedAt int64
	)
	if err := row.Scan(&l.UID, &l.Rate, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	l.CreatedAt = time.Unix(0, createdAt)
	l.UpdatedAt = time.Unix(0, updatedAt)
	return &l, nil
}
