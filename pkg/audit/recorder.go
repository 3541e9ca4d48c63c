package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config contains configuration for the Recorder.
type Config struct {
	// Buffer is the size of the async write channel.
	// Default: 256
	Buffer int

	// WriteTimeout bounds each store write.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Buffer:       256,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes entries to a Store from a background goroutine so the
// control plane never blocks on storage. Entries are dropped when the buffer
// is full.
type Recorder struct {
	store   Store
	config  *Config
	entries chan *Entry
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64
	logger  *slog.Logger
	now     func() time.Time
}

// NewRecorder starts a recorder writing to store.
func NewRecorder(store Store, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Buffer <= 0 {
		config.Buffer = 256
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		store:   store,
		config:  config,
		entries: make(chan *Entry, config.Buffer),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "audit.recorder"),
		now:     time.Now,
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Record enqueues entry, filling in ID and Time when unset. It never blocks.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Time.IsZero() {
		entry.Time = r.now()
	}

	select {
	case <-r.done:
		r.dropped.Add(1)
		return
	default:
	}

	select {
	case r.entries <- &entry:
	default:
		r.dropped.Add(1)
		r.logger.WarnContext(ctx, "audit buffer full, dropping entry",
			"command", entry.Command,
			"source", entry.Source,
			"buffer", r.config.Buffer,
		)
	}
}

// Dropped returns the number of entries discarded because the buffer was full
// or the recorder was closed.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting entries and waits for buffered ones to be written.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case entry := <-r.entries:
			r.write(entry)
		case <-r.done:
			for {
				select {
				case entry := <-r.entries:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.store.Append(ctx, entry); err != nil {
		r.logger.Error("failed to write audit entry",
			"id", entry.ID,
			"command", entry.Command,
			"error", err,
		)
	}
}
