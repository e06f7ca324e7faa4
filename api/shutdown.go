// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components that own descriptors or
// registrations and must release them on exit.
type GracefulShutdown interface {
	// Shutdown cancels outstanding work and releases resources.
	Shutdown() error
}
