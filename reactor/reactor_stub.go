//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// epoll is Linux only; other platforms default to poll(2).

package reactor

import "github.com/momentics/polltask/api"

const defaultBackend = BackendPoll

func newEpollReactor(options) (api.Multiplexer, error) {
	return nil, api.ErrNotSupported
}
