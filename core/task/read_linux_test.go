//go:build linux

package task_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/polltask/core/task"
)

// openPty returns the non-blocking master side of a fresh pseudo-terminal and
// the path of its slave.
func openPty(t *testing.T) (int, string) {
	t.Helper()
	master, err := unix.Open("/dev/ptmx", unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		t.Skipf("pseudo-terminals unavailable: %v", err)
	}
	t.Cleanup(func() { _ = unix.Close(master) })
	if err := unix.IoctlSetPointerInt(master, unix.TIOCSPTLCK, 0); err != nil {
		t.Skipf("unlockpt: %v", err)
	}
	n, err := unix.IoctlGetInt(master, unix.TIOCGPTN)
	if err != nil {
		t.Skipf("ptsname: %v", err)
	}
	return master, fmt.Sprintf("/dev/pts/%d", n)
}

func TestReadOnceClosedPtySlaveIsEOF(t *testing.T) {
	master, slavePath := openPty(t)
	slave, err := unix.Open(slavePath, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		t.Skipf("open %s: %v", slavePath, err)
	}
	require.NoError(t, unix.Close(slave))

	res, err := task.ReadOnce(master, make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, task.OutcomeEOF, res.Outcome)
	assert.Empty(t, res.Data)
}
