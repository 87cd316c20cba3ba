// Package logger configures the process wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gitlab.com/gitlab-org/httpwatch/internal/config"
)

const logFilePermissions = 0o640

// ConfigureLogger installs the default slog logger described by cfg. Logs go to cfg.LogFile, or to
// standard error when no file is configured or the file cannot be opened. The returned closer closes
// the log file and is nil when logging to standard error.
func ConfigureLogger(cfg *config.Config) io.Closer {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer
	)

	if cfg.LogFile != "" {
		logFile, err := os.OpenFile(filepath.Clean(cfg.LogFile), os.O_WRONLY|os.O_APPEND|os.O_CREATE, logFilePermissions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to configure log file %q, logging to stderr: %v\n", cfg.LogFile, err)
		} else {
			out = logFile
			closer = logFile
		}
	}

	slog.SetDefault(slog.New(newHandler(out, cfg.LogFormat, level(cfg.LogLevel))))

	return closer
}

func newHandler(out io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.NewJSONHandler(out, opts)
	}

	return slog.NewTextHandler(out, opts)
}

func level(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}

	return l
}
