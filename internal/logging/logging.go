// Package logging wraps zerolog with the configuration shape the rest of
// this repository expects: level, output format, and service identity
// fields attached to every event.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Format is the log output format.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Config configures New, mirroring the teacher's LoggerConfig/LogFormat
// shape (level, format, service identity, caller info) but backed by
// zerolog instead of log/slog.
type Config struct {
	Level          string // debug, info, warn, error; defaults to info
	Format         Format // defaults to console
	Output         io.Writer
	ServiceName    string
	ServiceVersion string
	Environment    string
	EnableCaller   bool
}

// New builds a zerolog.Logger from cfg, with service identity fields
// attached to every event it produces.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.ServiceVersion != "" {
		ctx = ctx.Str("version", cfg.ServiceVersion)
	}
	if cfg.Environment != "" {
		ctx = ctx.Str("env", cfg.Environment)
	}
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}

	return ctx.Logger()
}
