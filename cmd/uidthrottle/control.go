package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/uidthrottle/pkg/cli"
	"mercator-hq/uidthrottle/pkg/control"
	"mercator-hq/uidthrottle/pkg/throttle"
)

var setCmd = &cobra.Command{
	Use:   "set <uid> <rate>",
	Short: "Set the rate limit of a uid",
	Long: `Set the rate limit of a uid on a running daemon.

The rate is in bytes per window. A rate of 0 blocks every write of the uid,
a negative rate disables throttling for it, and a negative uid disables every
limit. Put "--" before the arguments when either is negative.

Examples:
  # Limit uid 1000 to 1 MiB per window
  uidthrottle set 1000 1048576

  # Stop throttling uid 1000
  uidthrottle set -- 1000 -1`,
	Args: cobra.ExactArgs(2),
	RunE: runSet,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Disable every rate limit",
	Long:  `Disable the rate limit of every uid on a running daemon.`,
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

var listFlags struct {
	format string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the rate limit table",
	Long: `Show every uid known to a running daemon, in the order it was first
configured.

Examples:
  uidthrottle list
  uidthrottle list --format json
  uidthrottle list --format csv`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(setCmd, resetCmd, listCmd)

	listCmd.Flags().StringVarP(&listFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func runSet(cmd *cobra.Command, args []string) error {
	uid, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return cli.NewConfigError("uid", fmt.Sprintf("%q is not an integer", args[0]))
	}
	rate, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return cli.NewConfigError("rate", fmt.Sprintf("%q is not an integer", args[1]))
	}

	command := control.Command{UID: uid, Rate: rate}
	if err := sendCommand(cmd, command); err != nil {
		return cli.NewCommandError("set", err)
	}

	if command.IsGlobalReset() {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ All rate limits disabled")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ uid %d rate set to %d\n", uid, rate)
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	if err := sendCommand(cmd, control.Command{UID: -1, Rate: -1}); err != nil {
		return cli.NewCommandError("reset", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ All rate limits disabled")
	return nil
}

func sendCommand(cmd *cobra.Command, command control.Command) error {
	client, err := dialControl()
	if err != nil {
		return err
	}
	return client.Send(cmd.Context(), command.String())
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(listFlags.format)
	if err != nil {
		return err
	}

	client, err := dialControl()
	if err != nil {
		return err
	}
	list, err := client.List(cmd.Context())
	if err != nil {
		return cli.NewCommandError("list", err)
	}

	var data any
	switch format {
	case cli.FormatJSON:
		data = list
	case cli.FormatCSV:
		data = newListTable(list)
	default:
		data = newListTable(list).Lines()
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}

// listTable renders list entries as text lines or CSV rows.
type listTable struct {
	entries []throttle.Snapshot
	window  time.Duration
}

func newListTable(list *control.ListResponse) listTable {
	window, _ := time.ParseDuration(list.Window)
	return listTable{entries: list.Entries, window: window}
}

// Lines returns the list in the daemon's text form.
func (t listTable) Lines() []string {
	lines := make([]string, 0, len(t.entries))
	for _, s := range t.entries {
		lines = append(lines, control.FormatLine(s, t.window))
	}
	return lines
}

func (t listTable) Header() []string {
	return []string{"uid", "rate_limit", "window_start", "quota", "stats_total_allowed", "stats_last_wait", "window", "stats_remaining_request"}
}

func (t listTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.entries))
	for _, s := range t.entries {
		rows = append(rows, []string{
			strconv.FormatInt(s.UID, 10),
			strconv.FormatInt(s.RateLimit, 10),
			strconv.FormatInt(s.WindowStart.UnixNano(), 10),
			strconv.FormatInt(s.Quota, 10),
			strconv.FormatInt(s.TotalAllowed, 10),
			s.LastWait.String(),
			t.window.String(),
			strconv.FormatInt(s.RemainingRequest, 10),
		})
	}
	return rows
}
