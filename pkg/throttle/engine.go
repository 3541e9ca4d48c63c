package throttle

import (
	"context"
	"log/slog"
	"time"
)

// DefaultWindow is the length of a quota window when none is configured.
const DefaultWindow = time.Second

// Suspension reasons reported to metrics.
const (
	reasonExhausted  = "exhausted"
	reasonContention = "contention"
	reasonPacing     = "pacing"
)

// Resolver maps a uid to the table slot holding its record.
type Resolver interface {
	Lookup(uid int64) (slot int, ok bool)
}

// Config contains configuration for the Engine.
type Config struct {
	// Window is the length of a quota window.
	// Default: 1s
	Window time.Duration

	// Clock supplies the current time. Default: SystemClock().
	Clock Clock

	// Sleep suspends callers. Default: a timer that observes ctx.
	Sleep SleepFunc

	// Metrics receives per-call debug metrics. Nil disables them.
	Metrics *Metrics
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		Window: DefaultWindow,
	}
}

// Result describes what a single throttle call did.
type Result struct {
	// Requested is the byte count the caller asked to account.
	Requested int64

	// Debited is the byte count actually taken from the quota.
	Debited int64

	// Waited is the sum of the sleep durations requested by the engine.
	Waited time.Duration

	// Suspensions counts every sleep the call went through.
	Suspensions int

	// CASConflicts counts lost compare-and-swap races on the quota.
	CASConflicts int

	// PartialAllocations counts successful debits that covered only part of
	// the outstanding bytes.
	PartialAllocations int

	// WindowResets counts windows this call started.
	WindowResets int

	// Interrupted is set when ctx was cancelled during a sleep.
	Interrupted bool
}

// Engine debits written bytes from per-uid quotas, blocking callers that
// exceed their budget.
type Engine struct {
	table    *Table
	resolver Resolver
	window   time.Duration
	clock    Clock
	sleep    SleepFunc
	metrics  *Metrics
	logger   *slog.Logger
}

// NewEngine creates an engine over table. A nil table yields an engine whose
// Throttle calls are all no-ops, which is how the daemon runs when the table
// could not be allocated.
func NewEngine(table *Table, resolver Resolver, cfg *Config, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		table:    table,
		resolver: resolver,
		window:   cfg.Window,
		clock:    cfg.Clock,
		sleep:    cfg.Sleep,
		metrics:  cfg.Metrics,
		logger:   logger.With("component", "throttle.engine"),
	}
	if e.window <= 0 {
		e.window = DefaultWindow
	}
	if e.clock == nil {
		e.clock = SystemClock()
	}
	if e.sleep == nil {
		e.sleep = sleepContext
	}

	if table == nil {
		e.logger.Warn("uid throttling disabled: no rate limit table")
	}

	return e
}

// Enabled reports whether the engine has a table to throttle against.
func (e *Engine) Enabled() bool {
	return e.table != nil
}

// Window returns the quota window length.
func (e *Engine) Window() time.Duration {
	return e.window
}

// Table returns the table the engine throttles against, or nil.
func (e *Engine) Table() *Table {
	return e.table
}

// Throttle accounts n bytes written on behalf of uid. It is the entry point
// for the write path. Unknown uids and a disabled engine return immediately.
func (e *Engine) Throttle(ctx context.Context, uid int64, n int64) Result {
	if e.table == nil || n <= 0 || e.resolver == nil {
		return Result{Requested: n}
	}

	slot, ok := e.resolver.Lookup(uid)
	if !ok {
		return Result{Requested: n}
	}

	return e.ThrottleRecord(ctx, e.table.Lookup(slot), n)
}

// ThrottleRecord debits n bytes from rec, sleeping whenever the current
// window's quota is exhausted or a concurrent debit wins the race. It returns
// once all n bytes were debited, the record is nil or disabled, or ctx is
// cancelled while sleeping. It never fails.
func (e *Engine) ThrottleRecord(ctx context.Context, rec *Record, n int64) Result {
	res := Result{Requested: n}
	if rec == nil || n <= 0 || rec.Disabled() {
		return res
	}
	defer e.metrics.observe(rec.uid, &res)

	window := int64(e.window)

	for {
		rate := rec.rateLimit.Load()
		if rate < 0 {
			return res
		}

		now := e.clock.Now().UnixNano()
		start := rec.windowStart.Load()
		if now < start || now-start >= window {
			// Not synchronized with other resets or debits.
			rec.windowStart.Store(now)
			rec.quota.Store(rate)
			start = now
			res.WindowResets++
		}

		pause := time.Duration(window - (now - start))

		old := rec.quota.Load()
		if old <= 0 {
			if !e.suspend(ctx, pause, reasonExhausted, &res) {
				return res
			}
			continue
		}

		allocate := min(n, old)
		remaining := old - allocate
		if !rec.quota.CompareAndSwap(old, remaining) {
			res.CASConflicts++
			if !e.suspend(ctx, pause/2, reasonContention, &res) {
				return res
			}
			continue
		}

		n -= allocate
		res.Debited += allocate
		rec.addAllowed(allocate)
		rec.remainingRequest.Store(n)

		if n == 0 {
			return res
		}
		res.PartialAllocations++

		if remaining == 0 {
			rec.lastWait.Store(int64(pause))
			if !e.suspend(ctx, pause, reasonPacing, &res) {
				return res
			}
		}
	}
}

// suspend sleeps for d and reports whether the caller should keep going.
func (e *Engine) suspend(ctx context.Context, d time.Duration, reason string, res *Result) bool {
	res.Suspensions++
	res.Waited += d
	e.metrics.suspended(reason)

	if e.sleep(ctx, d) {
		return true
	}

	res.Interrupted = true
	e.logger.Debug("throttle interrupted",
		"requested", res.Requested,
		"debited", res.Debited,
		"error", ctx.Err(),
	)
	return false
}
