//go:build unix

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/momentics/polltask/api"
)

// ReadOnce performs exactly one read of up to len(buf) bytes from the
// non-blocking descriptor fd. It never loops: readiness may be stale, and the
// caller retries on the next dispatch so other registrations are not starved.
//
// EIO is folded into OutcomeEOF: a pseudo-terminal reports it once the slave
// side has been closed. EAGAIN and EINTR yield OutcomeWouldBlock. Every other
// failure is returned as a *ReadError.
func ReadOnce(fd int, buf []byte) (ReadResult, error) {
	if len(buf) == 0 {
		return ReadResult{}, api.ErrInvalidArgument
	}
	n, err := unix.Read(fd, buf)
	switch {
	case err == nil && n > 0:
		return ReadResult{Outcome: OutcomeData, Data: buf[:n]}, nil
	case err == nil:
		return ReadResult{Outcome: OutcomeEOF}, nil
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK), errors.Is(err, unix.EINTR):
		return ReadResult{Outcome: OutcomeWouldBlock}, nil
	case errors.Is(err, unix.EIO):
		return ReadResult{Outcome: OutcomeEOF}, nil
	default:
		return ReadResult{}, &ReadError{Fd: fd, Err: err}
	}
}
