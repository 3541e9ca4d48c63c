package control

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// processingSuffix is appended to the control file while it is consumed.
const processingSuffix = ".processing"

// FileWatcherConfig contains configuration for the control file watcher.
type FileWatcherConfig struct {
	// Path is the control file. Each line holds one "<uid> <rate>" command.
	Path string

	// StatusPath receives the list output after every processed batch.
	// Empty disables the status mirror.
	StatusPath string

	// DebounceInterval is the quiet period before the file is consumed
	// (default: 100ms)
	DebounceInterval time.Duration
}

// DefaultFileWatcherConfig returns the default watcher configuration.
func DefaultFileWatcherConfig() *FileWatcherConfig {
	return &FileWatcherConfig{
		DebounceInterval: 100 * time.Millisecond,
	}
}

// FileWatcher feeds commands written to a control file into a Plane.
//
// The file's directory is watched so the file can be created, replaced or
// removed freely. Once changes settle the file is renamed aside, executed
// line by line, and deleted.
type FileWatcher struct {
	plane    *Plane
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   *FileWatcherConfig
	debounce *Debouncer

	processMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped sync.Once
}

// NewFileWatcher creates a watcher for config.Path.
func NewFileWatcher(plane *Plane, config *FileWatcherConfig, logger *slog.Logger) (*FileWatcher, error) {
	if config == nil {
		config = DefaultFileWatcherConfig()
	}
	if config.Path == "" {
		return nil, errors.New("control file path is required")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultFileWatcherConfig().DebounceInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		plane:    plane,
		watcher:  watcher,
		logger:   logger.With("component", "control.watcher"),
		config:   config,
		debounce: NewDebouncer(config.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch consumes the control file whenever it changes. A file already
// present when Watch starts is consumed immediately. Watch blocks until ctx
// is cancelled or Stop is called.
func (fw *FileWatcher) Watch(ctx context.Context) error {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return errors.New("watcher already running")
	}
	fw.running = true
	fw.mu.Unlock()

	defer close(fw.doneCh)

	dir := filepath.Dir(fw.config.Path)
	if err := fw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	fw.logger.Info("control file watcher started",
		"path", fw.config.Path,
		"status_path", fw.config.StatusPath,
		"debounce_ms", fw.config.DebounceInterval.Milliseconds(),
	)

	if err := fw.ProcessFile(ctx); err != nil {
		fw.logger.Error("failed to process control file", "error", err)
	}

	target := filepath.Clean(fw.config.Path)
	for {
		select {
		case <-ctx.Done():
			fw.logger.Info("control file watcher stopped (context cancelled)")
			return nil

		case <-fw.stopCh:
			fw.logger.Info("control file watcher stopped")
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			fw.logger.Debug("control file event", "op", event.Op.String())
			fw.debounce.Trigger(func() {
				if err := fw.ProcessFile(ctx); err != nil {
					fw.logger.Error("failed to process control file", "error", err)
				}
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			fw.logger.Error("control file watcher error", "error", err)
		}
	}
}

// Stop stops the watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopped.Do(func() {
		fw.mu.Lock()
		running := fw.running
		fw.mu.Unlock()

		close(fw.stopCh)
		if running {
			<-fw.doneCh
		}
		fw.debounce.Stop()

		if cerr := fw.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
	})
	return err
}

// ProcessFile consumes the control file if it exists and refreshes the
// status file. Blank lines and lines starting with '#' are skipped.
// Malformed lines are logged and skipped; the remaining lines still apply.
func (fw *FileWatcher) ProcessFile(ctx context.Context) error {
	fw.processMu.Lock()
	defer fw.processMu.Unlock()

	claimed := fw.config.Path + processingSuffix
	if err := os.Rename(fw.config.Path, claimed); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to claim control file: %w", err)
	}

	data, err := os.ReadFile(claimed)
	if err != nil {
		return fmt.Errorf("failed to read control file: %w", err)
	}
	if err := os.Remove(claimed); err != nil {
		fw.logger.Warn("failed to remove processed control file", "path", claimed, "error", err)
	}

	applied, failed := 0, 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fw.plane.Exec(ctx, SourceFile, line); err != nil {
			failed++
			continue
		}
		applied++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan control file: %w", err)
	}

	fw.logger.Info("control file processed", "applied", applied, "failed", failed)

	return fw.WriteStatus()
}

// WriteStatus replaces the status file with the current list output.
func (fw *FileWatcher) WriteStatus() error {
	if fw.config.StatusPath == "" {
		return nil
	}
	return WriteStatusFile(fw.config.StatusPath, fw.plane.List())
}

// WriteStatusFile atomically replaces path with one line per entry.
func WriteStatusFile(path string, lines []string) error {
	var buf bytes.Buffer
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create status file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write status file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write status file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace status file: %w", err)
	}
	return nil
}

// Debouncer runs the most recent callback once events stop arriving for
// the configured interval.
type Debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewDebouncer creates a new debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Trigger schedules callback, replacing any callback still pending.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case <-d.stopCh:
		return
	default:
	}

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
		}

		d.mu.Lock()
		cb := d.callback
		d.callback = nil
		d.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
