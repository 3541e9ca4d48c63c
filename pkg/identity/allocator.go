// Package identity maps uids to the small, stable slot indices used to
// address the rate limit table.
package identity

import (
	"errors"
	"fmt"
	"sync"
)

// ErrExhausted is returned when every slot has been handed out.
var ErrExhausted = errors.New("no free identity slots")

// ErrInvalidUID is returned for negative uids, which never own a slot.
var ErrInvalidUID = errors.New("invalid uid")

// Allocator assigns slots to uids in first-come order. A slot, once
// assigned, stays with its uid for the life of the process.
type Allocator struct {
	mu       sync.RWMutex
	slots    map[int64]int
	capacity int
}

// NewAllocator creates an allocator handing out slots in [0, capacity).
func NewAllocator(capacity int) *Allocator {
	return &Allocator{
		slots:    make(map[int64]int),
		capacity: capacity,
	}
}

// Lookup returns the slot assigned to uid, if any. It never allocates.
func (a *Allocator) Lookup(uid int64) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	slot, ok := a.slots[uid]
	return slot, ok
}

// Allocate returns the slot assigned to uid, assigning the next free one on
// first use.
func (a *Allocator) Allocate(uid int64) (int, error) {
	if uid < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidUID, uid)
	}

	if slot, ok := a.Lookup(uid); ok {
		return slot, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if slot, ok := a.slots[uid]; ok {
		return slot, nil
	}
	if len(a.slots) >= a.capacity {
		return 0, fmt.Errorf("%w: capacity %d reached", ErrExhausted, a.capacity)
	}

	slot := len(a.slots)
	a.slots[uid] = slot
	return slot, nil
}

// Len returns the number of assigned slots.
func (a *Allocator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.slots)
}

// Capacity returns the number of slots the allocator can hand out.
func (a *Allocator) Capacity() int {
	return a.capacity
}
