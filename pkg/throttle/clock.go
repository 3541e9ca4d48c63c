package throttle

import (
	"context"
	"time"
)

// Clock supplies the current time to the engine and table.
type Clock interface {
	Now() time.Time
}

// SleepFunc suspends the caller for d. It returns false if ctx was cancelled
// before d elapsed.
type SleepFunc func(ctx context.Context, d time.Duration) bool

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock {
	return systemClock{}
}

// sleepContext is the default SleepFunc.
func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
