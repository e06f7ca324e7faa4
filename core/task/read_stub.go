//go:build !unix

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import "github.com/momentics/polltask/api"

// ReadOnce is not available on this platform.
func ReadOnce(fd int, buf []byte) (ReadResult, error) {
	return ReadResult{}, &ReadError{Fd: fd, Err: api.ErrNotSupported}
}
