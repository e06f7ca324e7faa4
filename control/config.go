// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe store for the effective scheduler configuration, with change
// listeners.

package control

import (
	"maps"
	"sync"
)

// ConfigStore is a key/value map with snapshot reads and change listeners.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func(map[string]any)
}

// NewConfigStore initializes an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{config: make(map[string]any)}
}

// GetSnapshot returns a copy of all values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return maps.Clone(cs.config)
}

// SetConfig merges newCfg and notifies listeners with the merged snapshot.
// Listeners run on the caller's goroutine after the lock is released.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	maps.Copy(cs.config, newCfg)
	snap := maps.Clone(cs.config)
	listeners := append([]func(map[string]any){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// OnChange registers a listener called after every SetConfig.
func (cs *ConfigStore) OnChange(fn func(map[string]any)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
