package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/uidthrottle/pkg/cli"
	"mercator-hq/uidthrottle/pkg/config"
	"mercator-hq/uidthrottle/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the uidthrottle daemon",
	Long: `Start the uidthrottle daemon with the specified configuration.

The daemon allocates the rate limit table, restores persisted limits, applies
the limits listed in the configuration, and serves the control endpoint,
metrics and health checks on the admin listener.

Examples:
  # Start with default config
  uidthrottle run

  # Start with custom config
  uidthrottle run --config /etc/uidthrottle/config.yaml

  # Override listen address
  uidthrottle run --listen 0.0.0.0:9191

  # Validate config without starting the daemon
  uidthrottle run --dry-run`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the daemon")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("config", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("config", err.Error())
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	defer logger.Shutdown()
	slog.SetDefault(logger.Slog())

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	d, err := newDaemon(cfg, logger.Slog())
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		if err := d.close(); err != nil {
			slog.Error("failed to close stores", "error", err)
		}
	}()

	if err := d.restore(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	ln, err := net.Listen("tcp", cfg.Server.ListenAddress)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	printBanner(cmd, cfg, d, ln.Addr().String())

	if err := d.run(ctx, ln); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Daemon stopped")
	return nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := cfg.Telemetry.Logging
	return logging.New(logging.Config{
		Level:     lc.Level,
		Format:    lc.Format,
		AddSource: lc.AddSource,
		Writer:    os.Stderr,
		File: logging.FileConfig{
			Path:       lc.File.Path,
			MaxSizeMB:  lc.File.MaxSizeMB,
			MaxBackups: lc.File.MaxBackups,
			MaxAgeDays: lc.File.MaxAgeDays,
			Compress:   lc.File.Compress,
		},
	})
}

func printBanner(cmd *cobra.Command, cfg *config.Config, d *daemon, addr string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "uidthrottle v%s\n", Version)
	if d.plane.Enabled() {
		fmt.Fprintf(out, "✓ Rate limit table ready (%d entries, window %s)\n", cfg.Throttle.MaxEntries, cfg.Throttle.Window)
	} else {
		fmt.Fprintln(out, "✗ Rate limit table unavailable, throttling disabled")
	}
	fmt.Fprintf(out, "✓ Limit store: %s\n", cfg.Store.Backend)
	if cfg.Audit.Enabled {
		fmt.Fprintln(out, "✓ Audit trail enabled")
	}
	if cfg.Control.File.Enabled {
		fmt.Fprintf(out, "✓ Control file: %s\n", cfg.Control.File.Path)
	}
	scheme := "http"
	if cfg.Server.TLS.Enabled {
		scheme = "https"
	}
	if cfg.Control.HTTP.Enabled {
		fmt.Fprintf(out, "✓ Control endpoint: %s://%s%s\n", scheme, addr, cfg.Control.HTTP.Path)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: %s://%s%s\n", scheme, addr, cfg.Telemetry.Metrics.Path)
	}
	if cfg.Telemetry.Tracing.Enabled {
		fmt.Fprintf(out, "✓ Tracing to %s (%s sampler)\n", cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.Sampler)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
