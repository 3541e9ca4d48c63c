package throttle

import (
	"sync/atomic"
	"time"
)

// Record holds the quota state of a single uid.
//
// A Record is owned by the Table that created it and is never freed; it is
// disabled instead. When RateLimit is negative, no other field is meaningful.
type Record struct {
	uid int64

	rateLimit   atomic.Int64
	windowStart atomic.Int64 // unix nanoseconds
	quota       atomic.Int64

	// Statistics. totalAllowed is updated with a plain load/store pair and
	// may lose increments under contention.
	totalAllowed     atomic.Int64
	lastWait         atomic.Int64 // nanoseconds
	remainingRequest atomic.Int64
}

// Snapshot is a point-in-time copy of a Record's fields.
type Snapshot struct {
	UID              int64         `json:"uid"`
	RateLimit        int64         `json:"rate_limit"`
	WindowStart      time.Time     `json:"window_start"`
	Quota            int64         `json:"quota"`
	TotalAllowed     int64         `json:"stats_total_allowed"`
	LastWait         time.Duration `json:"stats_last_wait"`
	RemainingRequest int64         `json:"stats_remaining_request"`
}

func newRecord(uid, rate int64, now time.Time) *Record {
	r := &Record{uid: uid}
	r.rateLimit.Store(rate)
	r.windowStart.Store(now.UnixNano())
	if rate > 0 {
		r.quota.Store(rate)
	}
	return r
}

// UID returns the identity that owns the record.
func (r *Record) UID() int64 {
	return r.uid
}

// RateLimit returns the configured bytes per window. Negative means disabled.
func (r *Record) RateLimit() int64 {
	return r.rateLimit.Load()
}

// Disabled reports whether throttling is off for this record.
func (r *Record) Disabled() bool {
	return r.rateLimit.Load() < 0
}

// Quota returns the bytes left in the current window.
func (r *Record) Quota() int64 {
	return r.quota.Load()
}

// WindowStart returns the start of the current window.
func (r *Record) WindowStart() time.Time {
	return time.Unix(0, r.windowStart.Load())
}

// TotalAllowed returns the best-effort count of bytes debited since the rate
// was last set.
func (r *Record) TotalAllowed() int64 {
	return r.totalAllowed.Load()
}

// LastWait returns the last pacing sleep computed for this record.
func (r *Record) LastWait() time.Duration {
	return time.Duration(r.lastWait.Load())
}

// RemainingRequest returns the bytes still owed by the caller at its last
// successful debit.
func (r *Record) RemainingRequest() int64 {
	return r.remainingRequest.Load()
}

// Snapshot returns a field-by-field copy of the record. Fields are read
// individually, so the copy is not atomic across fields.
func (r *Record) Snapshot() Snapshot {
	return Snapshot{
		UID:              r.uid,
		RateLimit:        r.RateLimit(),
		WindowStart:      r.WindowStart(),
		Quota:            r.Quota(),
		TotalAllowed:     r.TotalAllowed(),
		LastWait:         r.LastWait(),
		RemainingRequest: r.RemainingRequest(),
	}
}

// addAllowed is deliberately not an atomic add.
func (r *Record) addAllowed(n int64) {
	r.totalAllowed.Store(r.totalAllowed.Load() + n)
}

// update applies an administrative rate change. Quota and window are left
// alone so the new rate takes effect at the next window boundary.
func (r *Record) update(rate int64) {
	r.rateLimit.Store(rate)
	r.totalAllowed.Store(0)
}

func (r *Record) disable() {
	r.rateLimit.Store(-1)
	r.quota.Store(0)
	r.windowStart.Store(0)
	r.totalAllowed.Store(0)
	r.lastWait.Store(0)
	r.remainingRequest.Store(0)
}
