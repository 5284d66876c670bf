package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. The default "pretty" format is the
// text handler aimed at a terminal; LOG_FORMAT=json and production runs both
// get machine-readable output.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && (cfg.LogFormat == "json" || cfg.IsProduction()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
}
