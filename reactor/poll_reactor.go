//go:build unix

// File: reactor/poll_reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// poll(2) implementation. Unlike epoll it reports POLLNVAL, which maps to
// api.EventInvalid when a registered descriptor was closed under the reactor.

package reactor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/polltask/api"
)

type pollReactor struct {
	*table
	regs   []*registration
	fds    []unix.PollFd
	opts   options
	closed atomic.Bool
}

func newPollReactor(o options) (api.Multiplexer, error) {
	return &pollReactor{table: newTable(), opts: o}, nil
}

func toPoll(events api.EventMask) int16 {
	// POLLHUP, POLLERR and POLLNVAL are always reported.
	var native int16
	if events.Has(api.EventReadable) {
		native |= unix.POLLIN | unix.POLLPRI
	}
	return native
}

func fromPoll(native int16) api.EventMask {
	var events api.EventMask
	if native&(unix.POLLIN|unix.POLLPRI) != 0 {
		events |= api.EventReadable
	}
	if native&unix.POLLHUP != 0 {
		events |= api.EventHangUp
	}
	if native&unix.POLLERR != 0 {
		events |= api.EventError
	}
	if native&unix.POLLNVAL != 0 {
		events |= api.EventInvalid
	}
	return events
}

func (r *pollReactor) Register(fd int, events api.EventMask, cb api.Callback) (api.Handle, error) {
	if r.closed.Load() {
		return api.InvalidHandle, api.ErrMultiplexerClosed
	}
	reg, err := r.table.add(fd, events, cb)
	if err != nil {
		return api.InvalidHandle, err
	}
	return reg.handle, nil
}

func (r *pollReactor) Unregister(h api.Handle) error {
	if r.closed.Load() {
		return api.ErrMultiplexerClosed
	}
	if _, ok := r.table.remove(h); !ok {
		return fmt.Errorf("unregister handle %d: %w", h, api.ErrNotFound)
	}
	return nil
}

func (r *pollReactor) DispatchOnce(timeout time.Duration) ([]api.Ready, error) {
	if r.closed.Load() {
		return nil, api.ErrMultiplexerClosed
	}
	r.regs = r.table.snapshot(r.regs)
	if timeout < 0 && len(r.regs) == 0 {
		return nil, nil
	}
	r.fds = r.fds[:0]
	for _, reg := range r.regs {
		r.fds = append(r.fds, unix.PollFd{Fd: int32(reg.fd), Events: toPoll(reg.events)})
	}
	_, err := unix.Poll(r.fds, timeoutMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("poll: %w", err)
	}
	for i, pfd := range r.fds {
		if pfd.Revents != 0 {
			r.table.enqueue(r.regs[i].handle, fromPoll(pfd.Revents))
		}
	}
	return r.table.deliver(&r.opts), nil
}

func (r *pollReactor) Registered() int {
	return r.table.len()
}

func (r *pollReactor) Close() error {
	if r.closed.CompareAndSwap(false, true) {
		r.table.reset()
	}
	return nil
}
