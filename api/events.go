// File: api/events.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Readiness event mask shared by every multiplexer backend. Native poll bits
// are translated into this set once, at the backend boundary.

package api

import (
	"fmt"
	"strings"
)

// EventMask is a set of readiness bits reported for one registration.
type EventMask uint32

const (
	// EventReadable reports pending input (or a pending end-of-stream).
	EventReadable EventMask = 1 << iota
	// EventHangUp reports that the peer end of the descriptor closed.
	EventHangUp
	// EventError reports an error condition on the descriptor.
	EventError
	// EventInvalid reports that the registered descriptor is not open.
	EventInvalid
)

const (
	// RegisteredEvents is the interest set every poll task registers with.
	RegisteredEvents = EventReadable | EventHangUp | EventError | EventInvalid

	// ExceptionalEvents require abnormal termination of the task.
	ExceptionalEvents = EventError | EventInvalid
)

var eventNames = [...]struct {
	bit  EventMask
	name string
}{
	{EventReadable, "IN"},
	{EventHangUp, "HUP"},
	{EventError, "ERR"},
	{EventInvalid, "NVAL"},
}

// Has reports whether any of bits is set in m.
func (m EventMask) Has(bits EventMask) bool { return m&bits != 0 }

// Exceptional reports whether m carries an error or invalid-descriptor bit.
func (m EventMask) Exceptional() bool { return m&ExceptionalEvents != 0 }

// String renders the mask as "IN|HUP"; unknown bits are printed in hex.
func (m EventMask) String() string {
	if m == 0 {
		return "0"
	}
	parts := make([]string, 0, len(eventNames))
	for _, e := range eventNames {
		if m&e.bit != 0 {
			parts = append(parts, e.name)
			m &^= e.bit
		}
	}
	if m != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(m)))
	}
	return strings.Join(parts, "|")
}
