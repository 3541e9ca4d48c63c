package throttle

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

var epoch = time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)

// fakeClock is a manual clock whose Sleep advances time instead of blocking.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: epoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return true
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// mapResolver resolves uids through a fixed map.
type mapResolver map[int64]int

func (m mapResolver) Lookup(uid int64) (int, bool) {
	slot, ok := m[uid]
	return slot, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestTable creates a table driven by clock.
func newTestTable(capacity int, clock Clock) *Table {
	table, err := NewTable(capacity, discardLogger())
	if err != nil {
		panic(err)
	}
	table.clock = clock
	return table
}

// newTestEngine creates an engine whose clock and sleeps are both clock.
func newTestEngine(table *Table, resolver Resolver, clock *fakeClock) *Engine {
	return NewEngine(table, resolver, &Config{
		Window: time.Second,
		Clock:  clock,
		Sleep:  clock.Sleep,
	}, discardLogger())
}
