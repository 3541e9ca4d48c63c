// Package logging provides structured logging for the uid throttle daemon.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Context-aware logging with request IDs, uids and control sources
//   - Optional rotating log files
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    File: logging.FileConfig{
//	        Path:      "/var/log/uidthrottle/uidthrottle.log",
//	        MaxSizeMB: 100,
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	defer logger.Shutdown()
//
//	slog.SetDefault(logger.Slog())
//
//	ctx = logging.WithRequestID(ctx, "req-123")
//	logger.InfoContext(ctx, "rate limit updated", "uid", 1000) // includes request_id
//
// # Rotation
//
// When File.Path is set, output goes through a size-based rotating writer.
// Rotated files are optionally gzip-compressed and pruned by count and age.
package logging
