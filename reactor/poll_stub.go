//go:build !unix

// File: reactor/poll_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "github.com/momentics/polltask/api"

func newPollReactor(options) (api.Multiplexer, error) {
	return nil, api.ErrNotSupported
}
