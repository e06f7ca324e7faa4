// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides readiness multiplexers implementing api.Multiplexer:
// level-triggered epoll on Linux and poll(2) on every unix target. Native
// readiness bits are translated into api.EventMask once, here, and every
// registration is addressed by an explicit api.Handle.
package reactor
