// control/probes.go
// Author: momentics <momentics@gmail.com>
//
// Process-level debug probes.

package control

import "runtime"

// RegisterRuntimeProbes adds Go runtime probes to dp.
func RegisterRuntimeProbes(dp *DebugProbes) {
	dp.RegisterProbe("runtime.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("runtime.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	dp.RegisterProbe("runtime.os", func() any {
		return runtime.GOOS
	})
}
