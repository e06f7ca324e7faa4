// File: api/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Task lifecycle contract for a single unit of asynchronous work.

package api

// Task is one unit of asynchronous work driven by a Multiplexer.
type Task interface {
	// ID returns the task identity.
	ID() string

	// Start begins the work; a task starts at most once.
	Start() error

	// Cancel requests early termination. It is a no-op on a finished task.
	Cancel()

	// Wait reaps the final exit code, driving the multiplexer if needed.
	Wait() int

	// IsAlive reports whether the task still monitors its descriptors.
	IsAlive() bool

	// Done is closed once the exit code is final.
	Done() <-chan struct{}
}
