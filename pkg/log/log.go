// Package log wires the process-wide slog defaults shared by the zapflow
// binaries.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on the default logger at the given level.
// Unrecognized levels fall back to info.
func Setup(logLevel string) {
	var level slog.Level

	err := level.UnmarshalText([]byte(logLevel))
	if err != nil {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns a logger tagged with the component name, the attribute
// every engine component logs under.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
