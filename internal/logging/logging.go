// File: internal/logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// zerolog setup shared by the facade, the reactor and the examples, plus the
// adapter that turns a zerolog.Logger into the api.Diagnostics sink.

package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/polltask/api"
)

const (
	EnvLogLevel   = "POLLTASK_LOG_LEVEL"
	EnvLogNoColor = "POLLTASK_LOG_NOCOLOR"
	EnvLogJSON    = "POLLTASK_LOG_JSON"
)

// Config selects the logger output. Zero value logs info and above to stderr
// through the console writer.
type Config struct {
	Level   string
	JSON    bool
	NoColor bool
	Out     io.Writer
	App     string
}

// New builds a logger from cfg after applying environment overrides.
func New(cfg Config) zerolog.Logger {
	applyEnvOverrides(&cfg)
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}
	level, ok := ParseLevel(cfg.Level)
	if !ok {
		level = zerolog.InfoLevel
	}
	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.App != "" {
		ctx = ctx.Str("app", cfg.App)
	}
	return ctx.Logger()
}

func applyEnvOverrides(cfg *Config) {
	if raw := strings.TrimSpace(os.Getenv(EnvLogLevel)); raw != "" {
		cfg.Level = raw
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogJSON)); ok {
		cfg.JSON = v
	}
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Diagnostics adapts a zerolog.Logger to api.Diagnostics.
type Diagnostics struct {
	logger zerolog.Logger
}

var _ api.Diagnostics = (*Diagnostics)(nil)

// NewDiagnostics wraps logger.
func NewDiagnostics(logger zerolog.Logger) *Diagnostics {
	return &Diagnostics{logger: logger}
}

// Default writes diagnostics to stderr at info level.
func Default() *Diagnostics {
	return NewDiagnostics(New(Config{}))
}

// Discard drops every diagnostic line.
func Discard() *Diagnostics {
	return NewDiagnostics(zerolog.Nop())
}

// Log implements api.Diagnostics.
func (d *Diagnostics) Log(level api.Level, msg string) {
	d.logger.WithLevel(toZerolog(level)).Msg(msg)
}

// Logger returns the wrapped logger.
func (d *Diagnostics) Logger() zerolog.Logger {
	return d.logger
}

func toZerolog(level api.Level) zerolog.Level {
	switch level {
	case api.LevelDebug:
		return zerolog.DebugLevel
	case api.LevelInfo:
		return zerolog.InfoLevel
	case api.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
