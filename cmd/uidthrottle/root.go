package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/uidthrottle/pkg/cli"
)

var (
	// Global flags
	cfgFile   string
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "uidthrottle",
	Short: "uidthrottle - per-uid write throughput throttle",
	Long: `uidthrottle paces filesystem writes per uid.

Each throttled uid has a byte budget per time window. Writers that exhaust
the budget are suspended until the next window starts. Budgets are set at
runtime through the control file or the admin HTTP endpoint.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and environment only when empty)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "control endpoint URL (default derived from the config)")
}
