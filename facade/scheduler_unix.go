//go:build unix

// File: facade/scheduler_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package facade

import (
	"os/exec"

	"github.com/momentics/polltask/adapters"
	"github.com/momentics/polltask/core/task"
)

// NewProcess builds an unstarted task running cmd with its output read
// through the shared multiplexer.
func (s *Scheduler) NewProcess(cmd *exec.Cmd, opts ...task.Option) *adapters.ProcessTask {
	return adapters.NewProcessTask(s.mux, cmd, s.taskOptions(opts)...)
}
