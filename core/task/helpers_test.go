//go:build unix

package task_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type pipe struct {
	t       *testing.T
	r, w    int
	rClosed bool
	wClosed bool
}

func newPipe(t *testing.T) *pipe {
	t.Helper()
	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	require.NoError(t, unix.SetNonblock(fds[0], true))
	require.NoError(t, unix.SetNonblock(fds[1], true))
	p := &pipe{t: t, r: fds[0], w: fds[1]}
	t.Cleanup(func() {
		p.closeRead()
		p.closeWrite()
	})
	return p
}

func (p *pipe) write(s string) {
	p.t.Helper()
	n, err := unix.Write(p.w, []byte(s))
	require.NoError(p.t, err)
	require.Equal(p.t, len(s), n)
}

func (p *pipe) closeWrite() {
	if !p.wClosed {
		p.wClosed = true
		_ = unix.Close(p.w)
	}
}

func (p *pipe) closeRead() {
	if !p.rClosed {
		p.rClosed = true
		_ = unix.Close(p.r)
	}
}
