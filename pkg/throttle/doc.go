// Package throttle implements per-uid write throughput throttling.
//
// # Overview
//
// Each identity (uid) may be assigned a rate limit expressed in bytes per
// fixed window. Writers attributed to that identity call the engine after
// producing bytes; the engine debits the bytes from the identity's quota and
// blocks the caller until the bytes fit the budget. Throttling is advisory: a
// write is never refused or truncated, only delayed.
//
// # Components
//
//   - Record: quota state and statistics for one uid
//   - Table: fixed-capacity slot arena owning every Record, plus an
//     insertion-ordered registry used for enumeration
//   - Engine: the window-based debit loop with CAS quota updates and
//     interruptible sleeps
//   - Writer: an io.Writer wrapper that feeds written byte counts to the Engine
//
// # Algorithm
//
// For a record with rate R and window W, a call to ThrottleRecord loops:
//
//  1. Abandon if the record was disabled (R < 0).
//  2. Start a new window if the current one expired or the clock moved back.
//  3. If the quota is exhausted, sleep until the window ends.
//  4. Otherwise CAS-debit min(requested, quota). A lost CAS sleeps for half
//     the remaining window and retries.
//  5. Return once everything was debited. If the debit exhausted the quota,
//     sleep until the window ends, then loop. A partial debit that left quota
//     behind loops immediately.
//
// Every sleep observes the caller's context; cancellation ends the call
// early without an error.
//
// # Thread Safety
//
// The debit path is lock-free. Record creation, rate updates, bulk disable
// and enumeration are serialized by the table lock. Window resets are not
// synchronized with concurrent debits; two callers observing the same expiry
// may both reset, which can over-grant by at most one window's budget but
// never drives the quota below zero.
//
// # Usage
//
//	table, err := throttle.NewTable(1024)
//	if err != nil {
//	    // throttling disabled; a nil table makes the engine a no-op
//	}
//	slots := identity.NewAllocator(1024)
//	engine := throttle.NewEngine(table, slots, throttle.WithWindow(time.Second))
//
//	slot, _ := slots.Allocate(1000)
//	table.GetOrCreate(1000, slot, 1<<20) // 1 MiB per second
//
//	engine.Throttle(ctx, 1000, int64(n))
package throttle
