package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"mercator-hq/uidthrottle/pkg/audit"
	"mercator-hq/uidthrottle/pkg/config"
	"mercator-hq/uidthrottle/pkg/control"
	"mercator-hq/uidthrottle/pkg/identity"
	"mercator-hq/uidthrottle/pkg/server"
	"mercator-hq/uidthrottle/pkg/store"
	"mercator-hq/uidthrottle/pkg/telemetry/health"
	"mercator-hq/uidthrottle/pkg/telemetry/metrics"
	"mercator-hq/uidthrottle/pkg/telemetry/tracing"
	"mercator-hq/uidthrottle/pkg/throttle"
)

const tracerShutdownTimeout = 5 * time.Second

// daemon holds every long-lived component of "uidthrottle run".
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	engine    *throttle.Engine
	plane     *control.Plane
	watcher   *control.FileWatcher
	health    *health.Checker
	server    *server.Server
	limits    store.Backend
	audit     audit.Store
	recorder  *audit.Recorder
	retention *audit.RetentionScheduler
}

// newDaemon builds the component graph. A table that cannot be allocated
// leaves throttling disabled instead of failing startup.
func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, logger: logger}

	d.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	d.tracer = tracer

	table, err := throttle.NewTable(cfg.Throttle.MaxEntries, logger)
	if err != nil {
		logger.Error("rate limit table unavailable, uid throttling disabled",
			"max_entries", cfg.Throttle.MaxEntries,
			"error", err,
		)
		table = nil
	}

	engineCfg := throttle.DefaultConfig()
	engineCfg.Window = cfg.Throttle.Window
	if cfg.Throttle.DebugMetrics {
		engineCfg.Metrics = throttle.NewMetrics(d.metrics.Registry(), d.metrics.Namespace())
	}
	slots := identity.NewAllocator(cfg.Throttle.MaxEntries)
	d.engine = throttle.NewEngine(table, slots, engineCfg, logger)

	if err := d.metrics.Register(throttle.NewTableCollector(table, d.metrics.Namespace())); err != nil {
		return nil, fmt.Errorf("failed to register table metrics: %w", err)
	}

	if err := d.openStores(); err != nil {
		d.close()
		return nil, err
	}

	d.plane = control.NewPlane(d.engine, slots, control.Options{
		Store:    d.limits,
		Recorder: d.recorder,
		Metrics:  d.metrics,
		Tracer:   d.tracer,
		Logger:   logger,
	})

	if cfg.Control.File.Enabled {
		if err := ensureDir(cfg.Control.File.Path); err != nil {
			d.close()
			return nil, err
		}
		d.watcher, err = control.NewFileWatcher(d.plane, &control.FileWatcherConfig{
			Path:             cfg.Control.File.Path,
			StatusPath:       cfg.Control.File.StatusPath,
			DebounceInterval: cfg.Control.File.Debounce,
		}, logger)
		if err != nil {
			d.close()
			return nil, fmt.Errorf("failed to create control file watcher: %w", err)
		}
	}

	d.health = health.New(cfg.Telemetry.Health.CheckTimeout)
	d.health.RegisterCheck("table", health.TableCheck(d.plane.Enabled))
	d.health.RegisterCheck("store", health.PingCheck("limit store", d.limits))
	if d.audit != nil {
		d.health.RegisterCheck("audit", health.PingCheck("audit store", d.audit))
	}

	d.server = server.NewServer(cfg, server.Routes{
		Control: control.NewHandler(d.plane),
		Health:  d.health,
		Metrics: d.metrics,
		Tracer:  d.tracer,
		Build:   server.BuildInfo{Version: Version, Commit: GitCommit, BuildTime: BuildDate},
	}, logger)

	return d, nil
}

func (d *daemon) openStores() error {
	cfg := d.cfg

	if cfg.Store.Backend == "sqlite" {
		if err := ensureDir(cfg.Store.SQLite.Path); err != nil {
			return err
		}
	}
	limits, err := store.New(store.Config{
		Backend: cfg.Store.Backend,
		SQLite: store.SQLiteConfig{
			Path:        cfg.Store.SQLite.Path,
			BusyTimeout: cfg.Store.SQLite.BusyTimeout,
		},
		Redis: store.RedisConfig{
			Address:   cfg.Store.Redis.Address,
			Password:  cfg.Store.Redis.Password,
			DB:        cfg.Store.Redis.DB,
			KeyPrefix: cfg.Store.Redis.KeyPrefix,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to open limit store: %w", err)
	}
	d.limits = limits

	if !cfg.Audit.Enabled {
		return nil
	}

	if cfg.Audit.Path == "" {
		d.audit = audit.NewMemoryStore()
	} else {
		if err := ensureDir(cfg.Audit.Path); err != nil {
			return err
		}
		d.audit, err = audit.NewSQLiteStore(audit.SQLiteConfig{Path: cfg.Audit.Path})
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
	}

	d.recorder = audit.NewRecorder(d.audit, &audit.Config{Buffer: cfg.Audit.Buffer})
	d.retention = audit.NewRetentionScheduler(d.audit, audit.RetentionConfig{
		Days:     cfg.Audit.RetentionDays,
		Schedule: cfg.Audit.PruneSchedule,
	})
	return nil
}

// restore replays the persisted limits, then the limits from the
// configuration file, so configured values win over stored ones.
func (d *daemon) restore(ctx context.Context) error {
	if !d.plane.Enabled() {
		return nil
	}

	restored, err := d.plane.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore stored limits: %w", err)
	}
	if restored > 0 {
		d.logger.Info("restored stored rate limits", "count", restored)
	}

	for _, l := range d.cfg.Throttle.Limits {
		cmd := control.Command{UID: l.UID, Rate: l.Rate}
		if err := d.plane.Apply(ctx, control.SourceConfig, cmd); err != nil {
			return fmt.Errorf("failed to apply configured limit %q: %w", cmd, err)
		}
	}

	if d.watcher != nil {
		if err := d.watcher.WriteStatus(); err != nil {
			d.logger.Warn("failed to write control status file", "error", err)
		}
	}
	return nil
}

// run serves until ctx is cancelled or a component fails.
func (d *daemon) run(ctx context.Context, ln net.Listener) error {
	if d.retention != nil {
		if err := d.retention.Start(ctx); err != nil {
			return fmt.Errorf("failed to start audit retention: %w", err)
		}
		defer d.retention.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.server.Serve(gctx, ln)
	})

	if d.watcher != nil {
		g.Go(func() error {
			return d.watcher.Watch(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			return d.watcher.Stop()
		})
	}

	return g.Wait()
}

// close releases the watcher and the stores. The audit recorder is drained
// first so queued entries reach the audit store. Pending spans are flushed
// last.
func (d *daemon) close() error {
	var errs []error
	if d.watcher != nil {
		errs = append(errs, d.watcher.Stop())
	}
	if d.recorder != nil {
		errs = append(errs, d.recorder.Close())
	}
	if d.audit != nil {
		errs = append(errs, d.audit.Close())
	}
	if d.limits != nil {
		errs = append(errs, d.limits.Close())
	}
	if d.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		errs = append(errs, d.tracer.Shutdown(ctx))
		cancel()
	}
	return errors.Join(errs...)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}
	return nil
}
