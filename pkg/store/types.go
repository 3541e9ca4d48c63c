package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Backend defines the interface for configured limit persistence.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Save creates or replaces the limit for l.UID.
	Save(ctx context.Context, l *Limit) error

	// Load returns the limit for uid, or nil if none is stored.
	Load(ctx context.Context, uid int64) (*Limit, error)

	// List returns every stored limit ordered by creation time.
	List(ctx context.Context) ([]*Limit, error)

	// DisableAll sets every stored rate to -1 and returns how many were changed.
	DisableAll(ctx context.Context) (int, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// Limit is the configured rate of one uid.
type Limit struct {
	// UID is the throttled identity.
	UID int64 `json:"uid"`

	// Rate is bytes per window; negative means disabled.
	Rate int64 `json:"rate"`

	// CreatedAt is when the uid was first configured.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the rate last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Config selects and configures a backend.
type Config struct {
	// Backend is one of "memory", "sqlite" or "redis".
	Backend string

	SQLite SQLiteConfig
	Redis  RedisConfig
}

// New creates the backend named by cfg.Backend.
func New(cfg Config) (Backend, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryBackend(), nil
	case "sqlite":
		return NewSQLiteBackend(cfg.SQLite)
	case "redis":
		return NewRedisBackend(cfg.Redis)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

func stamp(l *Limit, now time.Time) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
}

func sortLimits(limits []*Limit) {
	sort.Slice(limits, func(i, j int) bool {
		if limits[i].CreatedAt.Equal(limits[j].CreatedAt) {
			return limits[i].UID < limits[j].UID
		}
		return limits[i].CreatedAt.Before(limits[j].CreatedAt)
	})
}
