// File: reactor/table.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Registration bookkeeping and the dispatch step shared by all backends.
// Fired events are queued in the order the kernel reported them and each
// one is re-validated against the table right before its callback runs, so
// a registration removed earlier in the same cycle never sees a stale event.

package reactor

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/polltask/api"
)

type registration struct {
	handle api.Handle
	fd     int
	events api.EventMask
	cb     api.Callback
}

type fired struct {
	handle api.Handle
	events api.EventMask
}

type table struct {
	mu       sync.Mutex
	seq      uint32
	byHandle map[api.Handle]*registration
	byFd     map[int]api.Handle
	pending  *queue.Queue
}

func newTable() *table {
	return &table{
		byHandle: make(map[api.Handle]*registration),
		byFd:     make(map[int]api.Handle),
		pending:  queue.New(),
	}
}

func (t *table) add(fd int, events api.EventMask, cb api.Callback) (*registration, error) {
	if fd < 0 || cb == nil || events == 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "invalid registration").
			WithContext("fd", fd).Wrap(api.ErrInvalidArgument)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if h, dup := t.byFd[fd]; dup {
		return nil, api.NewError(api.ErrCodeAlreadyExists, "descriptor already registered").
			WithContext("fd", fd).WithContext("handle", h).Wrap(api.ErrAlreadyExists)
	}
	reg := &registration{handle: t.nextHandle(), fd: fd, events: events, cb: cb}
	t.byHandle[reg.handle] = reg
	t.byFd[fd] = reg.handle
	return reg, nil
}

// nextHandle must be called with mu held.
func (t *table) nextHandle() api.Handle {
	for {
		t.seq++
		h := api.Handle(t.seq)
		if h == api.InvalidHandle {
			continue
		}
		if _, live := t.byHandle[h]; !live {
			return h
		}
	}
}

func (t *table) remove(h api.Handle) (*registration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	reg, ok := t.byHandle[h]
	if !ok {
		return nil, false
	}
	delete(t.byHandle, h)
	delete(t.byFd, reg.fd)
	return reg, true
}

func (t *table) lookup(h api.Handle) (*registration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	reg, ok := t.byHandle[h]
	return reg, ok
}

func (t *table) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byHandle)
}

// snapshot returns the live registrations ordered by handle.
func (t *table) snapshot(dst []*registration) []*registration {
	t.mu.Lock()
	dst = dst[:0]
	for _, reg := range t.byHandle {
		dst = append(dst, reg)
	}
	t.mu.Unlock()
	slices.SortFunc(dst, func(a, b *registration) int { return cmp.Compare(a.handle, b.handle) })
	return dst
}

func (t *table) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.byHandle)
	clear(t.byFd)
	for t.pending.Length() > 0 {
		t.pending.Remove()
	}
}

func (t *table) enqueue(h api.Handle, events api.EventMask) {
	if events == 0 {
		return
	}
	t.pending.Add(fired{handle: h, events: events})
}

// deliver drains the pending queue, invoking each live registration's callback.
func (t *table) deliver(o *options) []api.Ready {
	var out []api.Ready
	for t.pending.Length() > 0 {
		f := t.pending.Remove().(fired)
		reg, ok := t.lookup(f.handle)
		if !ok {
			continue
		}
		out = append(out, api.Ready{Handle: reg.handle, Fd: reg.fd, Events: f.events})
		invoke(reg, f.events, o)
	}
	if o.observer != nil {
		o.observer.ObserveDispatch(len(out), t.len())
	}
	return out
}

func invoke(reg *registration, events api.EventMask, o *options) {
	// Keep the loop alive when one callback panics.
	defer func() {
		if r := recover(); r != nil {
			o.diag.Log(api.LevelError, fmt.Sprintf("reactor: callback for fd=%d (%s) panicked: %v", reg.fd, events, r))
		}
	}()
	reg.cb(reg.fd, events)
}
