// File: core/task/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package task implements the non-blocking I/O task core used to run build
// jobs concurrently: AsyncTask (start/cancel/wait lifecycle with exactly-once
// completion), PollTask (owns one descriptor's registration with an
// api.Multiplexer), ReadOnce (one bounded non-blocking read, classified) and
// WaitLoop (synchronous wait that drives the multiplexer until the task ends
// or a timeout elapses).
//
// All callbacks and state transitions happen on the goroutine that drives
// the multiplexer. Done channels and exit codes may be observed from any
// goroutine.
package task
