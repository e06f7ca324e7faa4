// File: facade/scheduler.go
// Unified facade layer for polltask.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduler aggregates the multiplexer, diagnostics, Prometheus metrics and
// debug probes behind a single value. Tasks built through it share the
// multiplexer and report to the same observers. All methods that dispatch
// (Iteration, Wait, RunUntilComplete and every task's Wait/Cancel) must be
// called from one goroutine: callbacks run on the caller's stack.

package facade

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/momentics/polltask/adapters"
	"github.com/momentics/polltask/api"
	"github.com/momentics/polltask/control"
	"github.com/momentics/polltask/core/task"
	"github.com/momentics/polltask/internal/logging"
	"github.com/momentics/polltask/reactor"
)

// Task is what the Scheduler tracks: every task built by this module.
type Task interface {
	api.Task
	ExitCode() int
	AddExitListener(fn func(code int)) (remove func())
}

type options struct {
	registerer prometheus.Registerer
	logger     *zerolog.Logger
	mux        api.Multiplexer
}

// Option customizes New.
type Option func(*options)

// WithRegisterer registers the metrics on reg instead of
// prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithLogger replaces the logger built from Config.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithMultiplexer makes the Scheduler drive mux instead of building one from
// Config.Backend. The Scheduler takes ownership of mux.
func WithMultiplexer(mux api.Multiplexer) Option {
	return func(o *options) { o.mux = mux }
}

// Scheduler is the main facade type.
type Scheduler struct {
	cfg     *Config
	mux     api.Multiplexer
	log     zerolog.Logger
	diag    *logging.Diagnostics
	metrics *control.Metrics
	config  *control.ConfigStore
	debug   *control.DebugProbes
	idle    atomic.Int64

	mu     sync.Mutex
	live   map[string]Task
	closed bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*Scheduler)(nil)

// New constructs a Scheduler with the given configuration.
func New(cfg *Config, opts ...Option) (*Scheduler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scheduler{
		cfg:    cfg,
		config: control.NewConfigStore(),
		debug:  control.NewDebugProbes(),
		live:   make(map[string]Task),
	}
	if o.logger != nil {
		s.log = *o.logger
	} else {
		s.log = logging.New(logging.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON, App: "polltask"})
	}
	s.diag = logging.NewDiagnostics(s.log)

	if cfg.EnableMetrics {
		m, err := control.NewMetrics(cfg.MetricsNamespace, o.registerer)
		if err != nil {
			return nil, fmt.Errorf("metrics init failure: %w", err)
		}
		s.metrics = m
	}

	s.mux = o.mux
	if s.mux == nil {
		ropts := []reactor.Option{
			reactor.WithMaxEvents(cfg.MaxEvents),
			reactor.WithDiagnostics(s.diag),
		}
		if s.metrics != nil {
			ropts = append(ropts, reactor.WithObserver(s.metrics))
		}
		mux, err := reactor.New(cfg.Backend, ropts...)
		if err != nil {
			return nil, fmt.Errorf("multiplexer init failure: %w", err)
		}
		s.mux = mux
	}

	s.idle.Store(int64(cfg.IdleTimeout))
	s.config.OnChange(s.applyConfig)
	s.config.SetConfig(cfg.snapshot())
	if cfg.EnableDebug {
		s.registerProbes()
	}
	s.log.Debug().Str("backend", cfg.Backend).Int("buffer_size", cfg.BufferSize).Msg("scheduler ready")
	return s, nil
}

func (s *Scheduler) registerProbes() {
	control.RegisterRuntimeProbes(s.debug)
	s.debug.RegisterProbe("reactor.registered", func() any { return s.mux.Registered() })
	s.debug.RegisterProbe("tasks.live", func() any { return s.LiveTasks() })
	s.debug.RegisterProbe("config", func() any { return s.config.GetSnapshot() })
	if s.metrics != nil {
		s.debug.RegisterProbe("metrics", func() any { return s.metrics.GetSnapshot() })
	}
}

// applyConfig picks up the runtime-tunable keys of the config store.
func (s *Scheduler) applyConfig(snap map[string]any) {
	v, ok := snap["idle_timeout"].(string)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		s.log.Warn().Str("idle_timeout", v).Msg("ignoring invalid idle timeout")
		return
	}
	if old := time.Duration(s.idle.Swap(int64(d))); old != d {
		s.log.Debug().Dur("old", old).Dur("new", d).Msg("idle timeout changed")
	}
}

// SetIdleTimeout changes the longest block of one Iteration at runtime.
func (s *Scheduler) SetIdleTimeout(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("idle timeout %s: %w", d, api.ErrInvalidArgument)
	}
	s.config.SetConfig(map[string]any{"idle_timeout": d.String()})
	return nil
}

// IdleTimeout returns the effective Iteration bound.
func (s *Scheduler) IdleTimeout() time.Duration {
	return time.Duration(s.idle.Load())
}

// Multiplexer returns the shared multiplexer.
func (s *Scheduler) Multiplexer() api.Multiplexer { return s.mux }

// Logger returns the scheduler logger.
func (s *Scheduler) Logger() zerolog.Logger { return s.log }

// Metrics returns the Prometheus collectors, nil when metrics are disabled.
func (s *Scheduler) Metrics() *control.Metrics { return s.metrics }

// Debug returns the debug probe registry.
func (s *Scheduler) Debug() api.Debug { return s.debug }

// ConfigStore returns the effective configuration snapshot store.
func (s *Scheduler) ConfigStore() *control.ConfigStore { return s.config }

// taskOptions puts the scheduler defaults ahead of opts so callers override.
func (s *Scheduler) taskOptions(opts []task.Option) []task.Option {
	base := []task.Option{
		task.WithBufferSize(s.cfg.BufferSize),
		task.WithDiagnostics(s.diag),
	}
	if s.metrics != nil {
		base = append(base, task.WithObserver(s.metrics))
	}
	return append(base, opts...)
}

// NewPollTask builds an unstarted task reading fd.
func (s *Scheduler) NewPollTask(fd int, opts ...task.Option) *task.PollTask {
	return task.NewPollTask(s.mux, fd, s.taskOptions(opts)...)
}

// NewPipeReader builds an unstarted reader over fds.
func (s *Scheduler) NewPipeReader(name string, fds []int, opts ...task.Option) *adapters.PipeReader {
	return adapters.NewPipeReader(s.mux, name, fds, s.taskOptions(opts)...)
}

// Start starts t and tracks it until it finishes, so Close can cancel it.
func (s *Scheduler) Start(t Task) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return api.ErrMultiplexerClosed
	}
	s.mu.Unlock()

	if err := t.Start(); err != nil {
		if !errors.Is(err, task.ErrAlreadyStarted) && !errors.Is(err, task.ErrAlreadyFinished) {
			s.log.Warn().Err(err).Str("task", t.ID()).Msg("task start failed")
		}
		return err
	}
	s.mu.Lock()
	s.live[t.ID()] = t
	s.mu.Unlock()
	t.AddExitListener(func(code int) {
		s.mu.Lock()
		delete(s.live, t.ID())
		s.mu.Unlock()
		s.log.Debug().Str("task", t.ID()).Int("exit_code", code).Msg("task finished")
	})
	return nil
}

// LiveTasks returns the IDs of started tasks that have not finished.
func (s *Scheduler) LiveTasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.live))
}

// Iteration runs one dispatch cycle, blocking at most IdleTimeout,
// and returns the number of events delivered.
func (s *Scheduler) Iteration() (int, error) {
	ready, err := s.mux.DispatchOnce(s.IdleTimeout())
	return len(ready), err
}

// Wait drives the multiplexer until t ends or timeout elapses (negative:
// unbounded). It does not cancel t.
func (s *Scheduler) Wait(t task.Waitable, timeout time.Duration) error {
	return task.WaitLoop(s.mux, t, timeout)
}

type anyAlive []Task

func (a anyAlive) IsAlive() bool {
	for _, t := range a {
		if t.IsAlive() {
			return true
		}
	}
	return false
}

// RunUntilComplete starts tasks that were not started yet, drives the
// multiplexer until all of them ended and reaps them. When ctx ends first
// the remaining tasks are cancelled and ctx.Err() is returned. The exit code
// of each task is available from the task afterwards.
func (s *Scheduler) RunUntilComplete(ctx context.Context, tasks ...Task) error {
	for _, t := range tasks {
		// Start failures are recorded on the task; already started tasks are
		// just waited on.
		if err := s.Start(t); errors.Is(err, api.ErrMultiplexerClosed) {
			return err
		}
	}
	err := task.WaitContext(ctx, s.mux, anyAlive(tasks), task.WithTick(s.IdleTimeout()))
	for _, t := range tasks {
		if err != nil {
			t.Cancel()
		}
		t.Wait()
	}
	return err
}

// Close cancels every live task, then releases the multiplexer. It is
// idempotent.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	live := slices.Collect(maps.Values(s.live))
	s.mu.Unlock()

	for _, t := range live {
		s.log.Debug().Str("task", t.ID()).Msg("cancelling task on close")
		t.Cancel()
	}
	return s.mux.Close()
}

// Shutdown implements api.GracefulShutdown by delegating to Close().
func (s *Scheduler) Shutdown() error {
	return s.Close()
}
