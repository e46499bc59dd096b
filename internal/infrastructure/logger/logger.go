package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/LavaJover/shvark-escrow-service/internal/config"
)

// New builds the service logger from log_config.
func New(cfg config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(defaultString(cfg.LogLevel, "info")))); err != nil {
		return nil, fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}

	var out io.Writer
	switch strings.ToLower(defaultString(cfg.LogOutput, "stdout")) {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		return nil, fmt.Errorf("invalid log_output %q", cfg.LogOutput)
	}

	return newLogger(out, level, cfg.LogFormat)
}

func newLogger(out io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(defaultString(format, "json")) {
	case "json":
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log_format %q", format)
	}
}

func defaultString(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
