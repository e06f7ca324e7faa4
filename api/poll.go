// Package api
// Author: momentics
//
// Observer hooks fed by the multiplexer dispatch cycle and by poll tasks.

package api

// ReactorObserver is notified after every dispatch cycle.
type ReactorObserver interface {
	ObserveDispatch(delivered, registered int)
}

// TaskObserver is notified of read outcomes and task completion.
type TaskObserver interface {
	// ObserveRead receives the outcome name ("data", "eof", "would_block",
	// "fatal") and the number of bytes read.
	ObserveRead(outcome string, n int)

	// ObserveFinish receives "ok", "failed" or "cancelled".
	ObserveFinish(result string)
}
