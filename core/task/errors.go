// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for the task core.

package task

import (
	"errors"
	"fmt"

	"github.com/momentics/polltask/api"
)

var (
	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("task already started")

	// ErrAlreadyFinished indicates Start on a task that was cancelled or reaped.
	ErrAlreadyFinished = errors.New("task already finished")

	// ErrReentrantWait indicates a task waiting on itself from its own callback.
	ErrReentrantWait = errors.New("task cannot wait on itself from its own dispatch")
)

// ReadError is a fatal read failure: anything other than "no data yet" or
// "device closed".
type ReadError struct {
	Fd  int
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read fd %d: %v", e.Fd, e.Err) }

func (e *ReadError) Unwrap() error { return e.Err }

// EventError records the exceptional readiness bits that cancelled a task.
type EventError struct {
	Fd     int
	Events api.EventMask
}

func (e *EventError) Error() string {
	return fmt.Sprintf("fd %d: unexpected poll event %s", e.Fd, e.Events)
}
