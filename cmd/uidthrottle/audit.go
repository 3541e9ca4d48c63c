package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/uidthrottle/pkg/audit"
	"mercator-hq/uidthrottle/pkg/cli"
	"mercator-hq/uidthrottle/pkg/config"
)

var auditFlags struct {
	path    string
	since   time.Duration
	uid     int64
	outcome string
	limit   int
	format  string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail of administrative commands",
	Long: `Query the audit trail written by the daemon. Entries are listed newest
first.

Examples:
  # Commands of the last day
  uidthrottle audit --since 24h

  # Rejected commands for uid 1000, as JSON
  uidthrottle audit --uid 1000 --outcome rejected --format json

  # Export to CSV
  uidthrottle audit --limit 1000 --format csv > audit.csv`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditFlags.path, "path", "", "audit database path (default from config)")
	auditCmd.Flags().DurationVar(&auditFlags.since, "since", 0, "only entries newer than this (e.g. 24h)")
	auditCmd.Flags().Int64Var(&auditFlags.uid, "uid", 0, "only entries for this uid")
	auditCmd.Flags().StringVar(&auditFlags.outcome, "outcome", "", "only entries with this outcome (applied, rejected)")
	auditCmd.Flags().IntVar(&auditFlags.limit, "limit", audit.DefaultQueryLimit, "maximum number of entries")
	auditCmd.Flags().StringVarP(&auditFlags.format, "format", "f", "text", "output format (text, json, csv)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(auditFlags.format)
	if err != nil {
		return err
	}

	filter, err := auditFilter(cmd)
	if err != nil {
		return err
	}

	path := auditFlags.path
	if path == "" {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return cli.NewConfigError("config", fmt.Sprintf("failed to load config: %v", err))
		}
		path = cfg.Audit.Path
	}
	if path == "" {
		return cli.NewConfigError("audit.path", "audit trail is kept in memory only; nothing to query")
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cli.NewConfigError("audit.path", fmt.Sprintf("audit database %q does not exist", path))
	}

	st, err := audit.NewSQLiteStore(audit.SQLiteConfig{Path: path})
	if err != nil {
		return cli.NewCommandError("audit", err)
	}
	defer st.Close()

	entries, err := st.Query(cmd.Context(), filter)
	if err != nil {
		return cli.NewCommandError("audit", err)
	}

	var data any = auditTable(entries)
	if format == cli.FormatJSON {
		if entries == nil {
			entries = []*audit.Entry{}
		}
		data = entries
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}

func auditFilter(cmd *cobra.Command) (audit.Filter, error) {
	filter := audit.Filter{Limit: auditFlags.limit}

	if auditFlags.limit < 1 {
		return filter, cli.NewConfigError("limit", "must be at least 1")
	}
	if auditFlags.since < 0 {
		return filter, cli.NewConfigError("since", "must not be negative")
	}
	if auditFlags.since > 0 {
		filter.Since = time.Now().Add(-auditFlags.since)
	}
	if cmd.Flags().Changed("uid") {
		uid := auditFlags.uid
		filter.UID = &uid
	}

	switch outcome := audit.Outcome(auditFlags.outcome); outcome {
	case "", audit.OutcomeApplied, audit.OutcomeRejected:
		filter.Outcome = outcome
	default:
		return filter, cli.NewConfigError("outcome", fmt.Sprintf("unknown outcome %q (valid: applied, rejected)", auditFlags.outcome))
	}

	return filter, nil
}

// auditTable renders audit entries as text or CSV rows.
type auditTable []*audit.Entry

func (t auditTable) Header() []string {
	return []string{"time", "source", "request_id", "command", "uid", "rate", "outcome", "error"}
}

func (t auditTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		requestID := e.RequestID
		if requestID == "" {
			requestID = "-"
		}
		rows = append(rows, []string{
			e.Time.Format(time.RFC3339),
			e.Source,
			requestID,
			strconv.Quote(e.Command),
			strconv.FormatInt(e.UID, 10),
			strconv.FormatInt(e.Rate, 10),
			string(e.Outcome),
			e.Error,
		})
	}
	return rows
}
