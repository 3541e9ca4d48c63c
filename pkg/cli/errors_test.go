package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("throttle.window", "must be positive")
	if got := err.Error(); got != "config error in throttle.window: must be positive" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCommandError(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewCommandError("set", inner)

	if got := err.Error(); got != "command set failed: connection refused" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, inner) {
		t.Error("CommandError does not unwrap to its cause")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "generic", err: errors.New("boom"), want: ExitFailure},
		{name: "config", err: NewConfigError("uid", "not an integer"), want: ExitUsage},
		{name: "wrapped config", err: NewCommandError("set", NewConfigError("uid", "bad")), want: ExitUsage},
		{name: "unavailable", err: fmt.Errorf("dial: %w", ErrUnavailable), want: ExitUnavailable},
		{name: "wrapped unavailable", err: NewCommandError("list", ErrUnavailable), want: ExitUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
