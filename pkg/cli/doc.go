/*
Package cli provides command-line helpers for the uidthrottle command.

Output Formatting:

Results can be written as text, JSON or CSV. CSV requires the value to
implement Table:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(totalBytes)
	progress.Add(int64(n)) // from any goroutine
	progress.Finish()

Exit Codes:

ExitCode maps command errors to process exit codes: ConfigError is a usage
error (2) and errors wrapping ErrUnavailable exit with 3.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
