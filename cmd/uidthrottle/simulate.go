package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/uidthrottle/pkg/cli"
	"mercator-hq/uidthrottle/pkg/control"
	"mercator-hq/uidthrottle/pkg/identity"
	"mercator-hq/uidthrottle/pkg/throttle"
)

var simulateFlags struct {
	uid     int64
	rate    int64
	window  time.Duration
	writers int
	bytes   int64
	chunk   int
	quiet   bool
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run writers against a local throttle engine",
	Long: `Run concurrent writers for one uid against an in-process engine and
report the achieved throughput. Nothing is written to disk and no daemon is
needed.

Examples:
  # Four writers sharing 64 KiB per second
  uidthrottle simulate --rate 65536 --writers 4 --bytes 262144

  # Large writes spread over several windows
  uidthrottle simulate --rate 4096 --window 100ms --chunk 65536`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().Int64Var(&simulateFlags.uid, "uid", 1000, "uid the writers are charged to")
	simulateCmd.Flags().Int64Var(&simulateFlags.rate, "rate", 1<<20, "bytes per window")
	simulateCmd.Flags().DurationVar(&simulateFlags.window, "window", throttle.DefaultWindow, "quota window length")
	simulateCmd.Flags().IntVar(&simulateFlags.writers, "writers", 1, "number of concurrent writers")
	simulateCmd.Flags().Int64Var(&simulateFlags.bytes, "bytes", 4<<20, "bytes written by each writer")
	simulateCmd.Flags().IntVar(&simulateFlags.chunk, "chunk", 32<<10, "size of each write")
	simulateCmd.Flags().BoolVarP(&simulateFlags.quiet, "quiet", "q", false, "suppress the progress bar")
}

// simulation is one simulate run.
type simulation struct {
	uid     int64
	rate    int64
	window  time.Duration
	writers int
	bytes   int64
	chunk   int
}

// simulationResult summarises a finished run.
type simulationResult struct {
	Bytes    int64
	Elapsed  time.Duration
	Snapshot throttle.Snapshot
}

// Throughput returns achieved bytes per second.
func (r simulationResult) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Elapsed.Seconds()
}

func (s simulation) validate() error {
	switch {
	case s.uid < 0:
		return cli.NewConfigError("uid", "must not be negative")
	case s.rate <= 0:
		return cli.NewConfigError("rate", "must be positive")
	case s.window <= 0:
		return cli.NewConfigError("window", "must be positive")
	case s.writers < 1:
		return cli.NewConfigError("writers", "must be at least 1")
	case s.bytes < 1:
		return cli.NewConfigError("bytes", "must be at least 1")
	case s.chunk < 1:
		return cli.NewConfigError("chunk", "must be at least 1")
	}
	return nil
}

// run drives the writers through a Plane-configured engine.
func (s simulation) run(ctx context.Context, progress cli.ProgressReporter, logger *slog.Logger) (simulationResult, error) {
	table, err := throttle.NewTable(1, logger)
	if err != nil {
		return simulationResult{}, err
	}
	slots := identity.NewAllocator(1)
	engine := throttle.NewEngine(table, slots, &throttle.Config{Window: s.window}, logger)

	plane := control.NewPlane(engine, slots, control.Options{Logger: logger})
	if err := plane.SetRate(ctx, s.uid, s.rate); err != nil {
		return simulationResult{}, err
	}

	total := s.bytes * int64(s.writers)
	progress.Start(total)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for range s.writers {
		g.Go(func() error {
			w := throttle.NewWriter(gctx, progressWriter{w: io.Discard, progress: progress}, engine, s.uid)
			buf := make([]byte, s.chunk)
			for remaining := s.bytes; remaining > 0; {
				n := min(int64(len(buf)), remaining)
				if _, err := w.Write(buf[:n]); err != nil {
					return err
				}
				remaining -= n
				if err := gctx.Err(); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		progress.Error(err)
		return simulationResult{}, err
	}
	progress.Finish()

	slot, _ := slots.Lookup(s.uid)
	return simulationResult{
		Bytes:    total,
		Elapsed:  time.Since(start),
		Snapshot: table.Lookup(slot).Snapshot(),
	}, nil
}

// progressWriter reports every write to a progress bar.
type progressWriter struct {
	w        io.Writer
	progress cli.ProgressReporter
}

func (p progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.progress.Add(int64(n))
	return n, err
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sim := simulation{
		uid:     simulateFlags.uid,
		rate:    simulateFlags.rate,
		window:  simulateFlags.window,
		writers: simulateFlags.writers,
		bytes:   simulateFlags.bytes,
		chunk:   simulateFlags.chunk,
	}
	if err := sim.validate(); err != nil {
		return err
	}

	progressOut := cmd.ErrOrStderr()
	if simulateFlags.quiet {
		progressOut = io.Discard
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	logger := slog.New(slog.DiscardHandler)
	result, err := sim.run(ctx, cli.NewProgressReporter(progressOut), logger)
	if err != nil {
		return cli.NewCommandError("simulate", err)
	}

	target := float64(sim.rate) / sim.window.Seconds()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %d bytes with %d writers in %s\n", result.Bytes, sim.writers, result.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Throughput: %.1f B/s (limit %.1f B/s)\n", result.Throughput(), target)
	fmt.Fprintln(out, control.FormatLine(result.Snapshot, sim.window))
	return nil
}
