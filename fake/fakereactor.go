// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for all core interfaces.

package fake

import (
	"fmt"
	"sync"
	"time"

	"github.com/momentics/polltask/api"
)

// Call records one Register or Unregister invocation.
type Call struct {
	Op     string // "register" or "unregister"
	Handle api.Handle
	Fd     int
}

type entry struct {
	fd     int
	events api.EventMask
	cb     api.Callback
}

// Multiplexer is a scriptable api.Multiplexer. Events queued with Fire are
// delivered on the next DispatchOnce, in order, skipping registrations that
// were removed meanwhile. With nothing queued, DispatchOnce sleeps for the
// positive timeout it was given, like a real idle wait.
type Multiplexer struct {
	mu         sync.Mutex
	seq        uint32
	entries    map[api.Handle]*entry
	queued     []api.Ready
	calls      []Call
	dispatches int
	closed     bool

	// BeforeDispatch, when set, runs at the start of every DispatchOnce.
	BeforeDispatch func(m *Multiplexer)
	// DispatchErr, when set, is returned by DispatchOnce.
	DispatchErr error
	// NoSleep makes idle dispatches return immediately.
	NoSleep bool
}

var _ api.Multiplexer = (*Multiplexer)(nil)

// NewMultiplexer returns an empty fake.
func NewMultiplexer() *Multiplexer {
	return &Multiplexer{entries: make(map[api.Handle]*entry)}
}

// Register implements api.Multiplexer.
func (m *Multiplexer) Register(fd int, events api.EventMask, cb api.Callback) (api.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return api.InvalidHandle, api.ErrMultiplexerClosed
	}
	for _, e := range m.entries {
		if e.fd == fd {
			return api.InvalidHandle, fmt.Errorf("fd %d: %w", fd, api.ErrAlreadyExists)
		}
	}
	m.seq++
	h := api.Handle(m.seq)
	m.entries[h] = &entry{fd: fd, events: events, cb: cb}
	m.calls = append(m.calls, Call{Op: "register", Handle: h, Fd: fd})
	return h, nil
}

// Unregister implements api.Multiplexer.
func (m *Multiplexer) Unregister(h api.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return api.ErrMultiplexerClosed
	}
	e, ok := m.entries[h]
	if !ok {
		return api.ErrNotFound
	}
	delete(m.entries, h)
	m.calls = append(m.calls, Call{Op: "unregister", Handle: h, Fd: e.fd})
	return nil
}

// Fire queues events for h.
func (m *Multiplexer) Fire(h api.Handle, events api.EventMask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fd := -1
	if e, ok := m.entries[h]; ok {
		fd = e.fd
	}
	m.queued = append(m.queued, api.Ready{Handle: h, Fd: fd, Events: events})
}

// FireFd queues events for the registration currently holding fd.
func (m *Multiplexer) FireFd(fd int, events api.EventMask) bool {
	h, ok := m.HandleFor(fd)
	if ok {
		m.Fire(h, events)
	}
	return ok
}

// HandleFor returns the live handle registered for fd.
func (m *Multiplexer) HandleFor(fd int) (api.Handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, e := range m.entries {
		if e.fd == fd {
			return h, true
		}
	}
	return api.InvalidHandle, false
}

// DispatchOnce implements api.Multiplexer.
func (m *Multiplexer) DispatchOnce(timeout time.Duration) ([]api.Ready, error) {
	if m.BeforeDispatch != nil {
		m.BeforeDispatch(m)
	}
	m.mu.Lock()
	m.dispatches++
	if m.DispatchErr != nil {
		err := m.DispatchErr
		m.mu.Unlock()
		return nil, err
	}
	queued := m.queued
	m.queued = nil
	m.mu.Unlock()

	if len(queued) == 0 {
		if timeout > 0 && !m.NoSleep {
			time.Sleep(timeout)
		}
		return nil, nil
	}

	var out []api.Ready
	for _, ev := range queued {
		m.mu.Lock()
		e, ok := m.entries[ev.Handle]
		m.mu.Unlock()
		if !ok {
			continue
		}
		out = append(out, ev)
		e.cb(e.fd, ev.Events)
	}
	return out, nil
}

// Registered implements api.Multiplexer.
func (m *Multiplexer) Registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close implements api.Multiplexer.
func (m *Multiplexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	clear(m.entries)
	m.queued = nil
	return nil
}

// Calls returns a copy of the recorded Register/Unregister invocations.
func (m *Multiplexer) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Dispatches returns how many times DispatchOnce ran.
func (m *Multiplexer) Dispatches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispatches
}
