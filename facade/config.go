// File: facade/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduler configuration: defaults, TOML overlay and validation.

package facade

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/momentics/polltask/api"
	"github.com/momentics/polltask/control"
	"github.com/momentics/polltask/core/task"
	"github.com/momentics/polltask/reactor"
)

// Config holds parameters fixed for the life of a Scheduler.
type Config struct {
	Backend          string        // Multiplexer backend: "auto", "epoll" or "poll"
	BufferSize       int           // Upper bound of a single read
	MaxEvents        int           // Readiness events collected per dispatch (epoll)
	IdleTimeout      time.Duration // Longest block of one Iteration
	LogLevel         string        // zerolog level name
	LogJSON          bool          // JSON lines instead of the console writer
	MetricsNamespace string        // Prefix of every Prometheus metric
	EnableMetrics    bool          // Whether to feed Prometheus collectors
	EnableDebug      bool          // Whether to register debug probes
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Backend:          reactor.BackendAuto,
		BufferSize:       task.DefaultBufferSize,
		MaxEvents:        reactor.DefaultMaxEvents,
		IdleTimeout:      250 * time.Millisecond,
		LogLevel:         "info",
		MetricsNamespace: control.DefaultNamespace,
		EnableMetrics:    true,
		EnableDebug:      true,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "", reactor.BackendAuto, reactor.BackendEpoll, reactor.BackendPoll:
	default:
		return fmt.Errorf("config: backend %q: %w", c.Backend, api.ErrInvalidArgument)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("config: buffer_size %d: %w", c.BufferSize, api.ErrInvalidArgument)
	}
	if c.MaxEvents <= 0 {
		return fmt.Errorf("config: max_events %d: %w", c.MaxEvents, api.ErrInvalidArgument)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("config: idle_timeout %s: %w", c.IdleTimeout, api.ErrInvalidArgument)
	}
	return nil
}

// snapshot flattens c for the debug config probe.
func (c *Config) snapshot() map[string]any {
	return map[string]any{
		"backend":           c.Backend,
		"buffer_size":       c.BufferSize,
		"max_events":        c.MaxEvents,
		"idle_timeout":      c.IdleTimeout.String(),
		"log_level":         c.LogLevel,
		"log_json":          c.LogJSON,
		"metrics_namespace": c.MetricsNamespace,
		"enable_metrics":    c.EnableMetrics,
		"enable_debug":      c.EnableDebug,
	}
}

// config.toml key mapping to Config.
type fileConfig struct {
	Backend          string `toml:"backend"`
	BufferSize       int    `toml:"buffer_size"`
	MaxEvents        int    `toml:"max_events"`
	IdleTimeout      string `toml:"idle_timeout"`
	LogLevel         string `toml:"log_level"`
	LogJSON          bool   `toml:"log_json"`
	MetricsNamespace string `toml:"metrics_namespace"`
	EnableMetrics    bool   `toml:"enable_metrics"`
	EnableDebug      bool   `toml:"enable_debug"`
}

// LoadConfig overlays the keys present in the TOML file at path onto
// DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("backend") {
		cfg.Backend = strings.TrimSpace(raw.Backend)
	}
	if meta.IsDefined("buffer_size") {
		cfg.BufferSize = raw.BufferSize
	}
	if meta.IsDefined("max_events") {
		cfg.MaxEvents = raw.MaxEvents
	}
	if meta.IsDefined("idle_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.IdleTimeout))
		if err != nil {
			return nil, fmt.Errorf("load config: idle_timeout: %w", err)
		}
		cfg.IdleTimeout = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("log_json") {
		cfg.LogJSON = raw.LogJSON
	}
	if meta.IsDefined("metrics_namespace") {
		cfg.MetricsNamespace = strings.TrimSpace(raw.MetricsNamespace)
	}
	if meta.IsDefined("enable_metrics") {
		cfg.EnableMetrics = raw.EnableMetrics
	}
	if meta.IsDefined("enable_debug") {
		cfg.EnableDebug = raw.EnableDebug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
