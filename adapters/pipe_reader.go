// File: adapters/pipe_reader.go
// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// PipeReader composes one PollTask per input descriptor and accumulates
// everything they read. It finishes once every input reached end of stream.

package adapters

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/momentics/polltask/api"
	"github.com/momentics/polltask/core/task"
)

// PipeReader reads several non-blocking descriptors into one buffer.
type PipeReader struct {
	*task.AsyncTask

	mux    api.Multiplexer
	inputs []*task.PollTask

	mu      sync.Mutex
	out     bytes.Buffer
	pending int
}

// NewPipeReader returns an unstarted reader over fds. opts apply to every
// input; WithOnData is chained after the reader's own accumulation.
func NewPipeReader(mux api.Multiplexer, name string, fds []int, opts ...task.Option) *PipeReader {
	r := &PipeReader{mux: mux}
	r.AsyncTask = task.NewAsyncTask(name, r)
	for _, fd := range fds {
		inputOpts := append([]task.Option{}, opts...)
		inputOpts = append(inputOpts,
			task.WithName(fmt.Sprintf("%s[fd %d]", r.ID(), fd)),
			task.WithOnData(r.collect(opts)),
		)
		r.inputs = append(r.inputs, task.NewPollTask(mux, fd, inputOpts...))
	}
	return r
}

// collect builds the data hook; a caller-supplied WithOnData still runs.
func (r *PipeReader) collect(opts []task.Option) func([]byte) {
	user := task.OnDataOf(opts)
	return func(b []byte) {
		r.mu.Lock()
		r.out.Write(b)
		r.mu.Unlock()
		if user != nil {
			user(b)
		}
	}
}

// Inputs returns the per-descriptor tasks.
func (r *PipeReader) Inputs() []*task.PollTask { return r.inputs }

// Output returns a copy of everything read so far.
func (r *PipeReader) Output() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Clone(r.out.Bytes())
}

// OnStart starts every input. On failure the inputs already started are
// cancelled.
func (r *PipeReader) OnStart() error {
	if len(r.inputs) == 0 {
		return fmt.Errorf("%s: no input descriptors: %w", r.ID(), api.ErrInvalidArgument)
	}
	for i, in := range r.inputs {
		if err := in.Start(); err != nil {
			for _, started := range r.inputs[:i] {
				started.Cancel()
			}
			return err
		}
	}
	r.mu.Lock()
	r.pending = len(r.inputs)
	r.mu.Unlock()
	for _, in := range r.inputs {
		in.AddExitListener(r.inputFinished)
	}
	return nil
}

// inputFinished runs once per input. An input cancelled on its own (strange
// poll event) cancels the whole reader.
func (r *PipeReader) inputFinished(code int) {
	r.mu.Lock()
	r.pending--
	last := r.pending == 0
	r.mu.Unlock()
	switch {
	case code == task.ExitCodeCancelled:
		r.Cancel()
	case last:
		r.Wait()
	}
}

// OnCancel cancels every input.
func (r *PipeReader) OnCancel() {
	for _, in := range r.inputs {
		in.Cancel()
	}
}

// OnWait drives the multiplexer until every input ended, then reaps them.
func (r *PipeReader) OnWait() int {
	if r.Alive() {
		if err := task.WaitLoop(r.mux, r, task.Unbounded); err != nil {
			r.Fail(err)
		}
	}
	var errs []error
	for _, in := range r.inputs {
		in.Wait()
		if err := in.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		r.Fail(err)
		return task.ExitCodeFailed
	}
	return task.ExitCodeOK
}

// Alive reports whether any input is still registered.
func (r *PipeReader) Alive() bool {
	for _, in := range r.inputs {
		if in.IsAlive() {
			return true
		}
	}
	return false
}

// InDispatch reports whether an input callback is running on this stack.
func (r *PipeReader) InDispatch() bool {
	for _, in := range r.inputs {
		if in.InDispatch() {
			return true
		}
	}
	return false
}
