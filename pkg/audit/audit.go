// Package audit keeps a durable trail of administrative rate limit commands.
//
// Every command received by the control plane, whether it was applied or
// rejected, is turned into an Entry and handed to a Recorder, which writes
// it to a Store from a background goroutine. A RetentionScheduler prunes old
// entries on a cron schedule.
package audit

import (
	"context"
	"fmt"
	"time"
)

// Outcome describes what happened to a command.
type Outcome string

const (
	// OutcomeApplied means the command changed throttle state.
	OutcomeApplied Outcome = "applied"

	// OutcomeRejected means the command was malformed or failed.
	OutcomeRejected Outcome = "rejected"
)

// Entry is one administrative command.
type Entry struct {
	// ID uniquely identifies the entry (UUID).
	ID string `json:"id"`

	// Time is when the command was received.
	Time time.Time `json:"time"`

	// Source names the control channel ("http", "file", "config", "store").
	Source string `json:"source"`

	// RequestID correlates the entry with server logs, if any.
	RequestID string `json:"request_id,omitempty"`

	// Command is the raw command text.
	Command string `json:"command"`

	// UID and Rate are the parsed arguments; zero when parsing failed.
	UID  int64 `json:"uid"`
	Rate int64 `json:"rate"`

	// Outcome is applied or rejected.
	Outcome Outcome `json:"outcome"`

	// Error holds the rejection reason.
	Error string `json:"error,omitempty"`
}

// Filter narrows a Query.
type Filter struct {
	// Since excludes entries older than this time. Zero means no bound.
	Since time.Time

	// UID restricts results to one uid when non-nil.
	UID *int64

	// Outcome restricts results to one outcome when non-empty.
	Outcome Outcome

	// Limit caps the number of results. Zero means DefaultQueryLimit.
	Limit int
}

// DefaultQueryLimit is applied when Filter.Limit is zero.
const DefaultQueryLimit = 100

// Store persists audit entries.
type Store interface {
	// Append writes a single entry.
	Append(ctx context.Context, entry *Entry) error

	// Query returns entries matching filter, newest first.
	Query(ctx context.Context, filter Filter) ([]*Entry, error)

	// Prune deletes entries older than before and returns how many were removed.
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Ping reports whether the store is usable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// StorageError wraps a failure of a specific store operation.
type StorageError struct {
	Backend   string
	Operation string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit %s %s: %v", e.Backend, e.Operation, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func newStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Operation: op, Err: err}
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultQueryLimit
	}
	return f.Limit
}

func (f Filter) matches(e *Entry) bool {
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	if f.UID != nil && e.UID != *f.UID {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	return true
}
