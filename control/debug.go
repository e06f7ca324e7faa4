// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Runtime debug probes for live inspection of a scheduler.

package control

import (
	"maps"
	"slices"
	"sync"

	"github.com/momentics/polltask/api"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

var _ api.Debug = (*DebugProbes)(nil)

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook, replacing any previous one.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// Names returns the registered probe names, sorted.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	return slices.Sorted(maps.Keys(dp.probes))
}

// DumpState returns output of all probes. Probes run without the registry
// lock held, so a probe may itself read the registry.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	probes := maps.Clone(dp.probes)
	dp.mu.RUnlock()

	out := make(map[string]any, len(probes))
	for k, fn := range probes {
		out[k] = fn()
	}
	return out
}
