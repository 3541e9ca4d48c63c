package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mercator-hq/uidthrottle/pkg/audit"
	"mercator-hq/uidthrottle/pkg/identity"
	"mercator-hq/uidthrottle/pkg/store"
	"mercator-hq/uidthrottle/pkg/telemetry/logging"
	"mercator-hq/uidthrottle/pkg/telemetry/metrics"
	"mercator-hq/uidthrottle/pkg/telemetry/tracing"
	"mercator-hq/uidthrottle/pkg/throttle"
)

// Sources name the channel a command arrived on.
const (
	SourceHTTP   = "http"
	SourceFile   = "file"
	SourceConfig = "config"
	SourceStore  = "store"
)

// Options contains the optional collaborators of a Plane.
type Options struct {
	// Store persists applied rates. Nil disables persistence.
	Store store.Backend

	// Recorder receives an audit entry for every command. Nil disables auditing.
	Recorder *audit.Recorder

	// Metrics counts commands by source and outcome. Nil disables counting.
	Metrics *metrics.Collector

	// Tracer records a span per applied command. Nil disables tracing.
	Tracer *tracing.Tracer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Plane applies administrative commands to the rate limit table.
type Plane struct {
	engine   *throttle.Engine
	slots    *identity.Allocator
	store    store.Backend
	recorder *audit.Recorder
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	logger   *slog.Logger
}

// NewPlane creates a control plane over the engine's table.
func NewPlane(engine *throttle.Engine, slots *identity.Allocator, opts Options) *Plane {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Plane{
		engine:   engine,
		slots:    slots,
		store:    opts.Store,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
		tracer:   opts.Tracer,
		logger:   logger.With("component", "control.plane"),
	}
}

// Enabled reports whether commands can be applied.
func (p *Plane) Enabled() bool {
	return p.engine.Enabled()
}

// Exec parses text and applies it. Malformed input is audited as rejected and
// changes nothing.
func (p *Plane) Exec(ctx context.Context, source, text string) error {
	cmd, err := ParseCommand(text)
	if err != nil {
		p.audit(ctx, source, strings.TrimSpace(text), Command{}, err)
		p.logger.WarnContext(ctx, "rejected rate limit command",
			"source", source,
			"error", err,
		)
		return err
	}
	return p.Apply(ctx, source, cmd)
}

// Apply executes a parsed command and records the outcome.
func (p *Plane) Apply(ctx context.Context, source string, cmd Command) error {
	ctx, span := p.tracer.Start(ctx, "control.apply", tracing.NewAttributeBuilder().
		WithCommand(source, cmd.UID, cmd.Rate).
		WithRequest(logging.GetRequestID(ctx)).
		Build())
	defer span.End()

	err := p.SetRate(ctx, cmd.UID, cmd.Rate)
	tracing.SetStatus(span, err)
	p.audit(ctx, source, cmd.String(), cmd, err)

	if err != nil {
		p.logger.WarnContext(ctx, "rate limit command failed",
			"source", source,
			"uid", cmd.UID,
			"rate", cmd.Rate,
			"error", err,
		)
		return err
	}

	if cmd.IsGlobalReset() {
		p.logger.InfoContext(ctx, "all uid rate limits disabled", "source", source)
	} else {
		p.logger.InfoContext(ctx, "uid rate limit set",
			"source", source,
			"uid", cmd.UID,
			"rate", cmd.Rate,
		)
	}
	return nil
}

// SetRate sets uid's rate limit in bytes per window. A negative uid disables
// every tracked uid and clears their statistics.
func (p *Plane) SetRate(ctx context.Context, uid, rate int64) error {
	if err := p.apply(uid, rate); err != nil {
		return err
	}
	p.persist(ctx, uid, rate)
	return nil
}

func (p *Plane) apply(uid, rate int64) error {
	table := p.engine.Table()
	if table == nil {
		return ErrDisabled
	}

	if uid < 0 {
		table.DisableAll()
		return nil
	}

	slot, err := p.slots.Allocate(uid)
	if err != nil {
		return fmt.Errorf("failed to assign slot to uid %d: %w", uid, err)
	}
	if _, err := table.GetOrCreate(uid, slot, rate); err != nil {
		return fmt.Errorf("failed to set rate for uid %d: %w", uid, err)
	}
	return nil
}

// persist is best effort: the table has already changed.
func (p *Plane) persist(ctx context.Context, uid, rate int64) {
	if p.store == nil {
		return
	}

	var err error
	if uid < 0 {
		_, err = p.store.DisableAll(ctx)
	} else {
		err = p.store.Save(ctx, &store.Limit{UID: uid, Rate: rate})
	}
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to persist rate limit",
			"uid", uid,
			"rate", rate,
			"error", err,
		)
	}
}

// Restore replays the stored limits into the table without writing them
// back. Disabled limits for uids the table does not know yet are skipped.
func (p *Plane) Restore(ctx context.Context) (int, error) {
	if p.store == nil {
		return 0, nil
	}
	if !p.Enabled() {
		return 0, ErrDisabled
	}

	limits, err := p.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored limits: %w", err)
	}

	restored := 0
	for _, l := range limits {
		if l.Rate < 0 {
			if _, known := p.slots.Lookup(l.UID); !known {
				continue
			}
		}

		cmd := Command{UID: l.UID, Rate: l.Rate}
		err := p.apply(cmd.UID, cmd.Rate)
		p.audit(ctx, SourceStore, cmd.String(), cmd, err)
		if err != nil {
			p.logger.WarnContext(ctx, "failed to restore rate limit", "uid", l.UID, "rate", l.Rate, "error", err)
			continue
		}
		restored++
	}

	return restored, nil
}

// Entries returns a snapshot of every tracked uid in insertion order.
func (p *Plane) Entries() []throttle.Snapshot {
	table := p.engine.Table()
	if table == nil {
		return nil
	}
	return table.Enumerate()
}

// List returns one formatted line per tracked uid.
func (p *Plane) List() []string {
	entries := p.Entries()
	lines := make([]string, 0, len(entries))
	for _, s := range entries {
		lines = append(lines, FormatLine(s, p.engine.Window()))
	}
	return lines
}

// Window returns the quota window length.
func (p *Plane) Window() time.Duration {
	return p.engine.Window()
}

// audit records the outcome of a command in the audit trail and metrics.
func (p *Plane) audit(ctx context.Context, source, text string, cmd Command, err error) {
	p.metrics.RecordCommand(source, err == nil)

	if p.recorder == nil {
		return
	}

	entry := audit.Entry{
		Source:    source,
		RequestID: logging.GetRequestID(ctx),
		Command:   text,
		UID:       cmd.UID,
		Rate:      cmd.Rate,
		Outcome:   audit.OutcomeApplied,
	}
	if err != nil {
		entry.Outcome = audit.OutcomeRejected
		entry.Error = err.Error()
	}
	p.recorder.Record(ctx, entry)
}

// IsRejection reports whether err means the command itself was bad, as
// opposed to the plane being unable to apply it.
func IsRejection(err error) bool {
	return errors.Is(err, ErrMalformedCommand) ||
		errors.Is(err, identity.ErrExhausted) ||
		errors.Is(err, identity.ErrInvalidUID)
}
