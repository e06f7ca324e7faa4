// File: core/task/async.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// AsyncTask is the generic lifecycle shared by every task: start once,
// cancel idempotently, reap once, and fire completion exactly once.

package task

import (
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/momentics/polltask/api"
)

// Exit codes reported by tasks that do not wrap a child process.
const (
	ExitCodeOK        = 0
	ExitCodeFailed    = 1
	ExitCodePending   = -1
	ExitCodeCancelled = -2
)

// Lifecycle is implemented by concrete tasks and driven by AsyncTask.
type Lifecycle interface {
	// OnStart begins the work (for example registers a descriptor).
	OnStart() error
	// OnCancel stops the work; it must release registrations before returning.
	OnCancel()
	// OnWait blocks until the work ended and returns its exit code.
	OnWait() int
	// Alive reports whether the work is still in progress.
	Alive() bool
}

type exitListener struct {
	id uint64
	fn func(code int)
}

// AsyncTask drives a Lifecycle and owns the completion state.
type AsyncTask struct {
	id       string
	impl     Lifecycle
	observer api.TaskObserver

	mu        sync.Mutex
	started   bool
	cancelled bool
	waiting   bool
	finished  bool
	code      int
	err       error
	seq       uint64
	listeners []exitListener
	done      chan struct{}
}

var _ api.Task = (*AsyncTask)(nil)

// NewAsyncTask returns a task driving impl. An empty name gets a random UUID.
func NewAsyncTask(name string, impl Lifecycle) *AsyncTask {
	if name == "" {
		name = uuid.NewString()
	}
	return &AsyncTask{
		id:   name,
		impl: impl,
		code: ExitCodePending,
		done: make(chan struct{}),
	}
}

// SetObserver reports the final result to obs.
func (t *AsyncTask) SetObserver(obs api.TaskObserver) {
	t.mu.Lock()
	t.observer = obs
	t.mu.Unlock()
}

// ID returns the task identity.
func (t *AsyncTask) ID() string { return t.id }

// Start begins the work. A failing OnStart finishes the task as failed.
func (t *AsyncTask) Start() error {
	t.mu.Lock()
	switch {
	case t.started:
		t.mu.Unlock()
		return ErrAlreadyStarted
	case t.cancelled || t.finished:
		t.mu.Unlock()
		return ErrAlreadyFinished
	}
	t.started = true
	t.mu.Unlock()

	if err := t.impl.OnStart(); err != nil {
		t.Fail(err)
		t.finish(ExitCodeFailed)
		return err
	}
	return nil
}

// Cancel requests early termination and reaps the task. Calling it on a
// cancelled or finished task does nothing.
func (t *AsyncTask) Cancel() {
	t.mu.Lock()
	if t.cancelled || t.finished {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	t.mu.Unlock()

	t.impl.OnCancel()
	t.Wait()
}

// Wait reaps the exit code. It is idempotent; a nested Wait issued while the
// first one is still reaping returns ExitCodePending.
func (t *AsyncTask) Wait() int {
	t.mu.Lock()
	if t.finished {
		code := t.code
		t.mu.Unlock()
		return code
	}
	if t.waiting {
		t.mu.Unlock()
		return ExitCodePending
	}
	t.waiting = true
	t.mu.Unlock()

	return t.finish(t.impl.OnWait())
}

func (t *AsyncTask) finish(code int) int {
	t.mu.Lock()
	if t.finished {
		code = t.code
		t.mu.Unlock()
		return code
	}
	switch {
	case t.cancelled:
		code = ExitCodeCancelled
	case t.err != nil && code == ExitCodeOK:
		code = ExitCodeFailed
	}
	t.finished = true
	t.waiting = false
	t.code = code
	listeners := t.listeners
	t.listeners = nil
	obs := t.observer
	close(t.done)
	t.mu.Unlock()

	if obs != nil {
		obs.ObserveFinish(resultLabel(code))
	}
	for _, l := range listeners {
		l.fn(code)
	}
	return code
}

func resultLabel(code int) string {
	switch code {
	case ExitCodeOK:
		return "ok"
	case ExitCodeCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Fail records err as the reason the task terminated abnormally. The first
// error wins.
func (t *AsyncTask) Fail(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	if t.err == nil {
		t.err = err
	}
	t.mu.Unlock()
}

// IsAlive reports whether the underlying work is still in progress.
func (t *AsyncTask) IsAlive() bool { return t.impl.Alive() }

// Done is closed once the exit code is final.
func (t *AsyncTask) Done() <-chan struct{} { return t.done }

// ExitCode returns the final exit code or ExitCodePending.
func (t *AsyncTask) ExitCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.code
}

// Err returns the error that terminated the task, nil on clean completion.
func (t *AsyncTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Cancelled reports whether Cancel was called before the task finished.
func (t *AsyncTask) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Finished reports whether the exit code is final.
func (t *AsyncTask) Finished() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finished
}

// AddExitListener registers fn to run once with the final exit code. On an
// already finished task fn runs immediately. The returned func removes fn.
func (t *AsyncTask) AddExitListener(fn func(code int)) (remove func()) {
	t.mu.Lock()
	if t.finished {
		code := t.code
		t.mu.Unlock()
		fn(code)
		return func() {}
	}
	t.seq++
	id := t.seq
	t.listeners = append(t.listeners, exitListener{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		t.listeners = slices.DeleteFunc(t.listeners, func(l exitListener) bool { return l.id == id })
		t.mu.Unlock()
	}
}
