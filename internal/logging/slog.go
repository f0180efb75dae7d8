// Package logging sets up the core's structured logger: a console handler
// always on, plus an optional Graylog GELF handler for centralized
// aggregation. Grounded on the teacher's internal/logging.SlogManager,
// trimmed down from its OTel-log-bridge variant (the core has no use for a
// log-records exporter; see internal/telemetry for its actual OTel
// surface).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	gelf "github.com/Graylog2/go-gelf/gelf"
)

// Config controls how the Manager's logger is assembled.
type Config struct {
	Level        string
	Output       io.Writer // defaults to os.Stderr
	GraylogAddr  string    // optional, e.g. "graylog.internal:12201"
}

// Manager owns the process-wide structured logger.
type Manager struct {
	logger *slog.Logger
}

// Setup builds the Manager's logger from cfg.
func Setup(cfg Config) (*Manager, error) {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	level := parseLevel(cfg.Level)
	handlers := []slog.Handler{
		slog.NewTextHandler(output, &slog.HandlerOptions{Level: level}),
	}

	if cfg.GraylogAddr != "" {
		writer, err := gelf.NewWriter(cfg.GraylogAddr)
		if err != nil {
			return nil, fmt.Errorf("logging: dialing graylog: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level}))
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = NewMultiHandler(handlers...)
	}

	return &Manager{logger: slog.New(handler)}, nil
}

func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
