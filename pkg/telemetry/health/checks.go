package health

import (
	"context"
	"errors"
	"fmt"
)

// ErrThrottlingDisabled is reported by TableCheck when the rate limit table
// could not be allocated.
var ErrThrottlingDisabled = errors.New("uid throttling disabled: no rate limit table")

// Pinger is implemented by the limit store and the audit store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TableCheck fails while throttling is disabled.
func TableCheck(enabled func() bool) CheckFunc {
	return func(ctx context.Context) error {
		if !enabled() {
			return ErrThrottlingDisabled
		}
		return nil
	}
}

// PingCheck fails when p cannot be reached.
func PingCheck(name string, p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s unreachable: %w", name, err)
		}
		return nil
	}
}
