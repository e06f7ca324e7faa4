// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import (
	"github.com/momentics/polltask/api"
	"github.com/momentics/polltask/internal/logging"
)

type config struct {
	name     string
	bufSize  int
	diag     api.Diagnostics
	observer api.TaskObserver
	onData   func([]byte)
}

// Option configures a PollTask.
type Option func(*config)

// WithName sets the task identity used in diagnostics.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// WithBufferSize bounds each read. Non-positive sizes keep DefaultBufferSize.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

// WithDiagnostics sets the sink for the strange-poll-event diagnostic.
func WithDiagnostics(d api.Diagnostics) Option {
	return func(c *config) {
		if d != nil {
			c.diag = d
		}
	}
}

// WithObserver reports reads and completion to obs.
func WithObserver(obs api.TaskObserver) Option {
	return func(c *config) { c.observer = obs }
}

// WithOnData receives every non-empty read. The slice is only valid for the
// duration of the call.
func WithOnData(fn func([]byte)) Option {
	return func(c *config) { c.onData = fn }
}

func newConfig(opts []Option) config {
	c := config{bufSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&c)
	}
	if c.diag == nil {
		c.diag = logging.Default()
	}
	return c
}

func applyOptions(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NameOf returns the WithName value carried by opts.
func NameOf(opts []Option) string { return applyOptions(opts).name }

// ObserverOf returns the WithObserver value carried by opts.
func ObserverOf(opts []Option) api.TaskObserver { return applyOptions(opts).observer }

// OnDataOf returns the WithOnData hook carried by opts, if any.
func OnDataOf(opts []Option) func([]byte) { return applyOptions(opts).onData }
