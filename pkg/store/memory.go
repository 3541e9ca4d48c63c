package store

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps limits in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu     sync.RWMutex
	limits map[int64]*Limit
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{limits: make(map[int64]*Limit)}
}

// Save creates or replaces the limit for l.UID.
func (m *MemoryBackend) Save(ctx context.Context, l *Limit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *l
	if prev, ok := m.limits[l.UID]; ok {
		stored.CreatedAt = prev.CreatedAt
	}
	stamp(&stored, time.Now())
	m.limits[l.UID] = &stored
	return nil
}

// Load returns the limit for uid, or nil if none is stored.
func (m *MemoryBackend) Load(ctx context.Context, uid int64) (*Limit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.limits[uid]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

// List returns every stored limit ordered by creation time.
func (m *MemoryBackend) List(ctx context.Context) ([]*Limit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limits := make([]*Limit, 0, len(m.limits))
	for _, l := range m.limits {
		cp := *l
		limits = append(limits, &cp)
	}
	sortLimits(limits)
	return limits, nil
}

// DisableAll sets every stored rate to -1.
func (m *MemoryBackend) DisableAll(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, l := range m.limits {
		l.Rate = -1
		l.UpdatedAt = now
	}
	return len(m.limits), nil
}

// Ping always succeeds.
func (m *MemoryBackend) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}
