// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync"

	"github.com/momentics/polltask/api"
)

// Line is one captured diagnostic.
type Line struct {
	Level api.Level
	Msg   string
}

// Diagnostics captures every line logged through it.
type Diagnostics struct {
	mu    sync.Mutex
	lines []Line
}

var _ api.Diagnostics = (*Diagnostics)(nil)

// Log implements api.Diagnostics.
func (d *Diagnostics) Log(level api.Level, msg string) {
	d.mu.Lock()
	d.lines = append(d.lines, Line{Level: level, Msg: msg})
	d.mu.Unlock()
}

// Lines returns a copy of the captured lines.
func (d *Diagnostics) Lines() []Line {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Line(nil), d.lines...)
}
