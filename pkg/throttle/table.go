package throttle

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// MaxCapacity bounds the number of slots a Table may be created with.
const MaxCapacity = 1 << 20

// Table owns the Record of every throttled uid.
//
// Slots are indexed by the small integer produced by the identity resolver.
// Lookup is lock-free; GetOrCreate, DisableAll and Enumerate take the
// structural lock. Quota updates never take the lock.
type Table struct {
	slots []atomic.Pointer[Record]

	mu    sync.Mutex
	order []int // populated slot indices in insertion order

	clock  Clock
	logger *slog.Logger
}

// NewTable allocates a table with room for capacity records.
// It returns ErrTableUnavailable if capacity is not in [1, MaxCapacity].
func NewTable(capacity int, logger *slog.Logger) (*Table, error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: capacity %d not in [1, %d]", ErrTableUnavailable, capacity, MaxCapacity)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Table{
		slots:  make([]atomic.Pointer[Record], capacity),
		order:  make([]int, 0, min(capacity, 64)),
		clock:  SystemClock(),
		logger: logger.With("component", "throttle.table"),
	}, nil
}

// Capacity returns the number of slots.
func (t *Table) Capacity() int {
	return len(t.slots)
}

// Len returns the number of populated slots.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}

// Lookup returns the record stored in slot, or nil if the slot is empty or
// out of range. A concurrent first insertion into the slot may not be
// visible yet.
func (t *Table) Lookup(slot int) *Record {
	if t == nil || slot < 0 || slot >= len(t.slots) {
		return nil
	}
	return t.slots[slot].Load()
}

// GetOrCreate returns the record in slot, creating it for uid with the given
// rate if the slot is empty. For an existing record the rate is replaced and
// the allowed-bytes counter reset; quota and window start are untouched.
//
// A uid mismatch on an occupied slot is logged and the update proceeds.
func (t *Table) GetOrCreate(uid int64, slot int, rate int64) (*Record, error) {
	if slot < 0 || slot >= len(t.slots) {
		return nil, fmt.Errorf("%w: %d (capacity %d)", ErrSlotOutOfRange, slot, len(t.slots))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if rec := t.slots[slot].Load(); rec != nil {
		if rec.uid != uid {
			t.logger.Warn("slot owned by a different uid",
				"slot", slot,
				"owner_uid", rec.uid,
				"requested_uid", uid,
			)
		}
		rec.update(rate)
		return rec, nil
	}

	rec := newRecord(uid, rate, t.clock.Now())
	t.slots[slot].Store(rec)
	t.order = append(t.order, slot)

	t.logger.Debug("rate limit record created", "uid", uid, "slot", slot, "rate_limit", rate)
	return rec, nil
}

// DisableAll sets every record's rate limit to -1 and clears its statistics.
// It returns the number of records disabled.
func (t *Table) DisableAll() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, slot := range t.order {
		t.slots[slot].Load().disable()
	}
	return len(t.order)
}

// Enumerate returns a snapshot of every record in insertion order.
func (t *Table) Enumerate() []Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshots := make([]Snapshot, 0, len(t.order))
	for _, slot := range t.order {
		snapshots = append(snapshots, t.slots[slot].Load().Snapshot())
	}
	return snapshots
}
