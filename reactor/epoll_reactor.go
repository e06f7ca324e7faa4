//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/polltask/api"
)

const defaultBackend = BackendEpoll

// epollReactor implements api.Multiplexer using level-triggered epoll. The
// registration handle travels in the event's user data so a readiness report
// can be matched to its registration without trusting the descriptor number.
type epollReactor struct {
	*table
	epfd   int
	events []unix.EpollEvent
	opts   options
	closed atomic.Bool
}

func newEpollReactor(o options) (api.Multiplexer, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	return &epollReactor{
		table:  newTable(),
		epfd:   epfd,
		events: make([]unix.EpollEvent, o.maxEvents),
		opts:   o,
	}, nil
}

func toEpoll(events api.EventMask) uint32 {
	// EPOLLHUP and EPOLLERR are always reported by the kernel.
	var native uint32
	if events.Has(api.EventReadable) {
		native |= unix.EPOLLIN | unix.EPOLLPRI
	}
	return native
}

func fromEpoll(native uint32) api.EventMask {
	var events api.EventMask
	if native&(unix.EPOLLIN|unix.EPOLLPRI) != 0 {
		events |= api.EventReadable
	}
	if native&unix.EPOLLHUP != 0 {
		events |= api.EventHangUp
	}
	if native&unix.EPOLLERR != 0 {
		events |= api.EventError
	}
	return events
}

// Register adds a file descriptor to the epoll watch list.
func (r *epollReactor) Register(fd int, events api.EventMask, cb api.Callback) (api.Handle, error) {
	if r.closed.Load() {
		return api.InvalidHandle, api.ErrMultiplexerClosed
	}
	reg, err := r.table.add(fd, events, cb)
	if err != nil {
		return api.InvalidHandle, err
	}
	ev := unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd), Pad: int32(reg.handle)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		r.table.remove(reg.handle)
		return api.InvalidHandle, api.NewError(api.ErrCodeInternal, "epoll ctl add").
			WithContext("fd", fd).Wrap(err)
	}
	return reg.handle, nil
}

// Unregister removes a registration from the epoll watch list.
func (r *epollReactor) Unregister(h api.Handle) error {
	if r.closed.Load() {
		return api.ErrMultiplexerClosed
	}
	reg, ok := r.table.remove(h)
	if !ok {
		return fmt.Errorf("unregister handle %d: %w", h, api.ErrNotFound)
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, reg.fd, nil); err != nil {
		// The kernel already dropped a descriptor that was closed under us.
		if errors.Is(err, unix.EBADF) || errors.Is(err, unix.ENOENT) {
			return nil
		}
		return api.NewError(api.ErrCodeInternal, "epoll ctl del").
			WithContext("fd", reg.fd).Wrap(err)
	}
	return nil
}

// DispatchOnce waits for readiness and runs the callbacks of fired registrations.
func (r *epollReactor) DispatchOnce(timeout time.Duration) ([]api.Ready, error) {
	if r.closed.Load() {
		return nil, api.ErrMultiplexerClosed
	}
	if timeout < 0 && r.table.len() == 0 {
		// Nothing could ever wake an unbounded wait.
		return nil, nil
	}
	n, err := unix.EpollWait(r.epfd, r.events, timeoutMillis(timeout))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil // interrupted by signal, normal
		}
		return nil, fmt.Errorf("epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		ev := r.events[i]
		r.table.enqueue(api.Handle(uint32(ev.Pad)), fromEpoll(ev.Events))
	}
	return r.table.deliver(&r.opts), nil
}

// Registered returns the number of live registrations.
func (r *epollReactor) Registered() int {
	return r.table.len()
}

// Close releases the epoll file descriptor.
func (r *epollReactor) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.table.reset()
	return unix.Close(r.epfd)
}
