package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	// Address is host:port of the Redis server.
	Address string

	// Password is optional.
	Password string

	// DB selects the logical database.
	DB int

	// KeyPrefix namespaces every key written by the backend.
	// Default: "uidthrottle:"
	KeyPrefix string

	// DialTimeout bounds the initial connection check.
	// Default: 5 seconds
	DialTimeout time.Duration
}

// RedisBackend stores limits in a single Redis hash keyed by uid, so several
// hosts can share one set of configured limits.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "uidthrottle:"
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{
		client: client,
		key:    cfg.KeyPrefix + "limits",
	}, nil
}

// Save creates or replaces the limit for l.UID. An existing entry keeps its
// creation time.
func (r *RedisBackend) Save(ctx context.Context, l *Limit) error {
	if l == nil {
		return fmt.Errorf("limit cannot be nil")
	}

	stored := *l
	prev, err := r.Load(ctx, l.UID)
	if err != nil {
		return err
	}
	if prev != nil {
		stored.CreatedAt = prev.CreatedAt
	}
	stamp(&stored, time.Now())

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal limit: %w", err)
	}

	if err := r.client.HSet(ctx, r.key, field(l.UID), data).Err(); err != nil {
		return fmt.Errorf("failed to save limit: %w", err)
	}
	return nil
}

// Load returns the limit for uid, or nil if none is stored.
func (r *RedisBackend) Load(ctx context.Context, uid int64) (*Limit, error) {
	data, err := r.client.HGet(ctx, r.key, field(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load limit: %w", err)
	}

	var l Limit
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal limit: %w", err)
	}
	return &l, nil
}

// List returns every stored limit ordered by creation time.
func (r *RedisBackend) List(ctx context.Context) ([]*Limit, error) {
	entries, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list limits: %w", err)
	}

	limits := make([]*Limit, 0, len(entries))
	for uid, data := range entries {
		var l Limit
		if err := json.Unmarshal([]byte(data), &l); err != nil {
			return nil, fmt.Errorf("failed to unmarshal limit for uid %s: %w", uid, err)
		}
		limits = append(limits, &l)
	}
	sortLimits(limits)
	return limits, nil
}

// DisableAll sets every stored rate to -1 in a single transaction.
func (r *RedisBackend) DisableAll(ctx context.Context) (int, error) {
	limits, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(limits) == 0 {
		return 0, nil
	}

	now := time.Now()
	pipe := r.client.TxPipeline()
	for _, l := range limits {
		l.Rate = -1
		l.UpdatedAt = now
		data, err := json.Marshal(l)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal limit: %w", err)
		}
		pipe.HSet(ctx, r.key, field(l.UID), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to disable limits: %w", err)
	}

	return len(limits), nil
}

// Ping checks the Redis connection.
func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func field(uid int64) string {
	return strconv.FormatInt(uid, 10)
}
