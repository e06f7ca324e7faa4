// File: core/task/poll.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PollTask owns exactly one descriptor's registration with a multiplexer:
//
//	Unregistered --Start--> Registered --EOF/HUP/ERR/NVAL/cancel--> Unregistered
//
// The registration is released before the task finalizes, and before any
// further dispatch could reach it.

package task

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/momentics/polltask/api"
)

// PollTask reads one non-blocking descriptor until end of stream.
type PollTask struct {
	*AsyncTask

	mux      api.Multiplexer
	fd       int
	buf      []byte
	diag     api.Diagnostics
	observer api.TaskObserver
	onData   func([]byte)

	mu          sync.Mutex
	handle      api.Handle
	registered  bool
	dispatching atomic.Bool
}

// NewPollTask returns an unstarted task for fd. The caller keeps ownership of
// fd and must not close it while the task is registered.
func NewPollTask(mux api.Multiplexer, fd int, opts ...Option) *PollTask {
	c := newConfig(opts)
	p := &PollTask{
		mux:      mux,
		fd:       fd,
		buf:      make([]byte, c.bufSize),
		diag:     c.diag,
		observer: c.observer,
		onData:   c.onData,
	}
	p.AsyncTask = NewAsyncTask(c.name, p)
	p.AsyncTask.SetObserver(c.observer)
	return p
}

// Fd returns the monitored descriptor.
func (p *PollTask) Fd() int { return p.fd }

// Handle returns the live registration handle or api.InvalidHandle.
func (p *PollTask) Handle() api.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// OnStart registers the descriptor for api.RegisteredEvents.
func (p *PollTask) OnStart() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, err := p.mux.Register(p.fd, api.RegisteredEvents, p.handleEvent)
	if err != nil {
		return fmt.Errorf("%s: register fd %d: %w", p.ID(), p.fd, err)
	}
	p.handle = h
	p.registered = true
	return nil
}

// OnCancel releases the registration.
func (p *PollTask) OnCancel() {
	p.unregister()
}

// OnWait drives the multiplexer until the descriptor is released.
func (p *PollTask) OnWait() int {
	if p.Alive() {
		if p.InDispatch() {
			p.Fail(ErrReentrantWait)
		} else if err := WaitLoop(p.mux, p, Unbounded); err != nil {
			p.Fail(err)
		}
		p.unregister()
	}
	if p.Err() != nil {
		return ExitCodeFailed
	}
	return ExitCodeOK
}

// Alive reports whether the descriptor is registered.
func (p *PollTask) Alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registered
}

// InDispatch reports whether the task's callback is running on this stack.
func (p *PollTask) InDispatch() bool { return p.dispatching.Load() }

// unregister is idempotent and clears the local flag before the multiplexer
// entry, so no path can observe a registration that is being torn down.
func (p *PollTask) unregister() {
	p.mu.Lock()
	if !p.registered {
		p.mu.Unlock()
		return
	}
	h := p.handle
	p.registered = false
	p.handle = api.InvalidHandle
	p.mu.Unlock()

	err := p.mux.Unregister(h)
	if err != nil && !errors.Is(err, api.ErrNotFound) && !errors.Is(err, api.ErrMultiplexerClosed) {
		p.Fail(err)
	}
}

func (p *PollTask) handleEvent(_ int, events api.EventMask) {
	p.dispatching.Store(true)
	defer p.dispatching.Store(false)

	if events.Exceptional() {
		p.diag.Log(api.LevelError, fmt.Sprintf("!!! %s received strange poll event: %s", p.ID(), events))
		p.Fail(&EventError{Fd: p.fd, Events: events})
		p.unregister()
		p.Cancel()
		return
	}

	// Readiness bits are only a hint: the read result decides.
	res, err := ReadOnce(p.fd, p.buf)
	if err != nil {
		p.observeRead("fatal", 0)
		p.Fail(err)
		p.unregister()
		p.Wait()
		return
	}
	p.observeRead(res.Outcome.String(), len(res.Data))

	switch res.Outcome {
	case OutcomeData:
		// A hang-up with data pending re-fires until the pipe is drained.
		if p.onData != nil {
			p.onData(res.Data)
		}
	case OutcomeEOF:
		p.unregister()
		p.Wait()
	case OutcomeWouldBlock:
		if events.Has(api.EventHangUp) {
			p.unregister()
			p.Wait()
		}
	}
}

func (p *PollTask) observeRead(outcome string, n int) {
	if p.observer != nil {
		p.observer.ObserveRead(outcome, n)
	}
}
