// File: core/task/wait.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wait bridge: block the caller until a task ends by repeatedly driving one
// multiplexer dispatch cycle. Every blocking point of the core funnels through
// api.Multiplexer.DispatchOnce.

package task

import (
	"context"
	"time"

	"github.com/momentics/polltask/api"
)

// Unbounded disables the WaitLoop timeout.
const Unbounded time.Duration = -1

// DefaultContextTick caps a single dispatch in WaitContext so cancellation of
// a context without deadline is noticed.
const DefaultContextTick = 100 * time.Millisecond

// Clock reads the wall clock.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Waitable is anything WaitLoop can wait on.
type Waitable interface {
	IsAlive() bool
}

type waitConfig struct {
	clock Clock
	tick  time.Duration
}

// WaitOption configures WaitLoop and WaitContext.
type WaitOption func(*waitConfig)

// WithClock replaces time.Now.
func WithClock(c Clock) WaitOption {
	return func(w *waitConfig) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithTick caps each dispatch in WaitContext.
func WithTick(d time.Duration) WaitOption {
	return func(w *waitConfig) {
		if d > 0 {
			w.tick = d
		}
	}
}

func newWaitConfig(opts []WaitOption) waitConfig {
	w := waitConfig{clock: ClockFunc(time.Now), tick: DefaultContextTick}
	for _, opt := range opts {
		opt(&w)
	}
	return w
}

// DispatchAware is implemented by tasks that know when their own callback is
// executing. Waiting on such a task from that callback is refused.
type DispatchAware interface {
	InDispatch() bool
}

// WaitLoop drives mux until t is no longer alive or timeout elapses. A
// negative timeout waits without bound; zero returns without dispatching.
// The timeout is advisory: it does not cancel t, and callers check
// t.IsAlive() afterwards. If the clock moves backwards the timeout is treated
// as expired.
func WaitLoop(mux api.Multiplexer, t Waitable, timeout time.Duration, opts ...WaitOption) error {
	if d, ok := t.(DispatchAware); ok && d.InDispatch() {
		return ErrReentrantWait
	}
	if timeout < 0 {
		for t.IsAlive() {
			if _, err := mux.DispatchOnce(Unbounded); err != nil {
				return err
			}
		}
		return nil
	}

	w := newWaitConfig(opts)
	start := w.clock.Now()
	remaining := timeout
	for remaining > 0 && t.IsAlive() {
		if _, err := mux.DispatchOnce(remaining); err != nil {
			return err
		}
		elapsed := w.clock.Now().Sub(start)
		if elapsed < 0 {
			break
		}
		remaining = timeout - elapsed
	}
	return nil
}

// WaitContext is WaitLoop bounded by ctx instead of a timeout. It returns
// ctx.Err() when the context ends first.
func WaitContext(ctx context.Context, mux api.Multiplexer, t Waitable, opts ...WaitOption) error {
	if d, ok := t.(DispatchAware); ok && d.InDispatch() {
		return ErrReentrantWait
	}
	w := newWaitConfig(opts)
	for t.IsAlive() {
		if err := ctx.Err(); err != nil {
			return err
		}
		timeout := Unbounded
		if ctx.Done() != nil {
			timeout = w.tick
		}
		if deadline, ok := ctx.Deadline(); ok {
			if rem := deadline.Sub(w.clock.Now()); rem < timeout || timeout < 0 {
				timeout = max(rem, 0)
			}
		}
		if _, err := mux.DispatchOnce(timeout); err != nil {
			return err
		}
	}
	return nil
}
