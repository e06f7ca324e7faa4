//go:build unix

package adapters_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/polltask/api"
	"github.com/momentics/polltask/fake"
	"github.com/momentics/polltask/reactor"
)

func newReactor(t *testing.T) api.Multiplexer {
	t.Helper()
	mux, err := reactor.New(reactor.BackendAuto, reactor.WithDiagnostics(&fake.Diagnostics{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mux.Close() })
	return mux
}

type fdSet struct {
	t    *testing.T
	open map[int]bool
}

// fds closes every descriptor it handed out that the test did not close.
func fds(t *testing.T) *fdSet {
	s := &fdSet{t: t, open: make(map[int]bool)}
	t.Cleanup(func() {
		for fd := range s.open {
			_ = unix.Close(fd)
		}
	})
	return s
}

// pipe returns a pipe with a non-blocking read end.
func (s *fdSet) pipe() (r, w int) {
	s.t.Helper()
	var p [2]int
	require.NoError(s.t, unix.Pipe(p[:]))
	require.NoError(s.t, unix.SetNonblock(p[0], true))
	s.open[p[0]] = true
	s.open[p[1]] = true
	return p[0], p[1]
}

func (s *fdSet) close(fd int) {
	s.t.Helper()
	require.True(s.t, s.open[fd], "fd %d not open", fd)
	delete(s.open, fd)
	require.NoError(s.t, unix.Close(fd))
}

func write(t *testing.T, fd int, s string) {
	t.Helper()
	_, err := unix.Write(fd, []byte(s))
	require.NoError(t, err)
}
