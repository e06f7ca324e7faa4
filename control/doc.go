// Package control
// Author: momentics <momentics@gmail.com>
//
// Metrics, configuration snapshot and debug introspection layer of the
// polltask scheduler.
//
// Provides concurrent-safe state handling primitives including:
//   - Prometheus collectors fed through the reactor and task observer hooks
//   - A configuration store with change listeners
//   - Named debug probes dumped on demand
package control
