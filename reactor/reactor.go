// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Backend selection and options shared by every multiplexer implementation.

package reactor

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/momentics/polltask/api"
	"github.com/momentics/polltask/internal/logging"
)

const (
	BackendAuto  = "auto"
	BackendEpoll = "epoll"
	BackendPoll  = "poll"
)

// DefaultMaxEvents bounds the readiness events collected per dispatch cycle.
const DefaultMaxEvents = 128

type options struct {
	maxEvents int
	diag      api.Diagnostics
	observer  api.ReactorObserver
}

// Option configures a multiplexer.
type Option func(*options)

// WithMaxEvents sets the per-cycle event buffer size (epoll only).
func WithMaxEvents(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEvents = n
		}
	}
}

// WithDiagnostics routes callback panics to d.
func WithDiagnostics(d api.Diagnostics) Option {
	return func(o *options) {
		if d != nil {
			o.diag = d
		}
	}
}

// WithObserver reports every dispatch cycle to obs.
func WithObserver(obs api.ReactorObserver) Option {
	return func(o *options) { o.observer = obs }
}

// New creates a multiplexer for backend ("auto", "epoll" or "poll").
func New(backend string, opts ...Option) (api.Multiplexer, error) {
	o := options{maxEvents: DefaultMaxEvents}
	for _, opt := range opts {
		opt(&o)
	}
	if o.diag == nil {
		o.diag = logging.Default()
	}
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendAuto:
		return newBackend(defaultBackend, o)
	case BackendEpoll, BackendPoll:
		return newBackend(strings.ToLower(strings.TrimSpace(backend)), o)
	default:
		return nil, fmt.Errorf("reactor backend %q: %w", backend, api.ErrInvalidArgument)
	}
}

// DefaultBackend returns the backend "auto" resolves to on this platform.
func DefaultBackend() string {
	return defaultBackend
}

func newBackend(name string, o options) (api.Multiplexer, error) {
	var (
		mux api.Multiplexer
		err error
	)
	if name == BackendEpoll {
		mux, err = newEpollReactor(o)
	} else {
		mux, err = newPollReactor(o)
	}
	if err != nil {
		return nil, fmt.Errorf("reactor %s: %w", name, err)
	}
	return mux, nil
}

// timeoutMillis converts a dispatch timeout to poll(2)/epoll_wait(2) units,
// rounding up so a sub-millisecond wait never degrades into a busy poll.
func timeoutMillis(d time.Duration) int {
	switch {
	case d < 0:
		return -1
	case d == 0:
		return 0
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	if ms > math.MaxInt32 {
		ms = math.MaxInt32
	}
	return int(ms)
}
