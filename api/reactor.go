// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Defines the readiness multiplexer contract consumed by poll tasks. One
// goroutine owns a multiplexer and drives DispatchOnce; every registered
// callback runs on that goroutine, never in parallel with another callback.

package api

import "time"

// Handle identifies one live registration. It is issued by Register and is
// the only key Unregister accepts, so a recycled descriptor number can never
// alias an older registration.
type Handle uint32

// InvalidHandle is never issued by a multiplexer.
const InvalidHandle Handle = 0

// Callback receives the descriptor and the readiness bits that fired.
type Callback func(fd int, events EventMask)

// Ready is one delivered readiness notification.
type Ready struct {
	Handle Handle
	Fd     int
	Events EventMask
}

// Multiplexer is an OS-level readiness notifier shared by all tasks.
type Multiplexer interface {
	// Register starts monitoring fd for events and returns the registration handle.
	Register(fd int, events EventMask, cb Callback) (Handle, error)

	// Unregister removes a registration. Events already collected for h in the
	// current dispatch cycle are dropped. Unknown handles yield ErrNotFound.
	Unregister(h Handle) error

	// DispatchOnce waits up to timeout (negative blocks, zero polls) for
	// readiness, invokes the callbacks of the registrations that fired and
	// returns what was delivered.
	DispatchOnce(timeout time.Duration) ([]Ready, error)

	// Registered returns the number of live registrations.
	Registered() int

	// Close releases the backend. Live registrations are dropped.
	Close() error
}
