//go:build unix

package facade_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/polltask/api"
	"github.com/momentics/polltask/core/task"
	"github.com/momentics/polltask/facade"
	"github.com/momentics/polltask/fake"
)

func newScheduler(t *testing.T, cfg *facade.Config, opts ...facade.Option) *facade.Scheduler {
	t.Helper()
	if cfg == nil {
		cfg = facade.DefaultConfig()
	}
	cfg.IdleTimeout = 20 * time.Millisecond
	opts = append([]facade.Option{
		facade.WithRegisterer(prometheus.NewRegistry()),
		facade.WithLogger(zerolog.Nop()),
	}, opts...)
	s, err := facade.New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type pipes struct {
	t    *testing.T
	open map[int]bool
}

func newPipes(t *testing.T) *pipes {
	p := &pipes{t: t, open: make(map[int]bool)}
	t.Cleanup(func() {
		for fd := range p.open {
			_ = unix.Close(fd)
		}
	})
	return p
}

func (p *pipes) make() (r, w int) {
	var fds [2]int
	require.NoError(p.t, unix.Pipe(fds[:]))
	require.NoError(p.t, unix.SetNonblock(fds[0], true))
	p.open[fds[0]], p.open[fds[1]] = true, true
	return fds[0], fds[1]
}

func (p *pipes) writeAndClose(fd int, s string) {
	_, err := unix.Write(fd, []byte(s))
	require.NoError(p.t, err)
	delete(p.open, fd)
	require.NoError(p.t, unix.Close(fd))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := facade.DefaultConfig()
	cfg.Backend = "select"
	_, err := facade.New(cfg, facade.WithRegisterer(prometheus.NewRegistry()))
	assert.ErrorIs(t, err, api.ErrInvalidArgument)
}

func TestRunUntilComplete(t *testing.T) {
	s := newScheduler(t, nil)
	p := newPipes(t)
	r1, w1 := p.make()
	r2, w2 := p.make()

	var got []string
	t1 := s.NewPollTask(r1, task.WithName("one"), task.WithOnData(func(b []byte) { got = append(got, string(b)) }))
	t2 := s.NewPipeReader("two", []int{r2})

	p.writeAndClose(w1, "first")
	p.writeAndClose(w2, "second")

	require.NoError(t, s.RunUntilComplete(context.Background(), t1, t2))
	assert.Equal(t, task.ExitCodeOK, t1.ExitCode())
	assert.Equal(t, task.ExitCodeOK, t2.ExitCode())
	assert.Equal(t, []string{"first"}, got)
	assert.Equal(t, "second", string(t2.Output()))
	assert.Empty(t, s.LiveTasks())
	assert.Equal(t, 0, s.Multiplexer().Registered())

	m := s.Metrics()
	require.NotNil(t, m)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reads().WithLabelValues("data")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Reads().WithLabelValues("eof")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Finished().WithLabelValues("ok")))
	assert.Positive(t, testutil.ToFloat64(m.Dispatches()))
}

func TestRunUntilCompleteCancelsOnContext(t *testing.T) {
	s := newScheduler(t, nil)
	p := newPipes(t)
	r, _ := p.make()

	pt := s.NewPollTask(r)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := s.RunUntilComplete(ctx, pt)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, task.ExitCodeCancelled, pt.ExitCode())
	assert.Equal(t, 0, s.Multiplexer().Registered())
}

func TestRunUntilCompleteProcesses(t *testing.T) {
	s := newScheduler(t, nil)
	ok := s.NewProcess(exec.Command("sh", "-c", "echo done"), task.WithName("ok"))
	bad := s.NewProcess(exec.Command("sh", "-c", "exit 4"), task.WithName("bad"))

	require.NoError(t, s.RunUntilComplete(context.Background(), ok, bad))
	assert.Equal(t, 0, ok.ExitCode())
	assert.Equal(t, "done\n", string(ok.Output()))
	assert.Equal(t, 4, bad.ExitCode())
}

func TestIterationAndWait(t *testing.T) {
	s := newScheduler(t, nil)
	p := newPipes(t)
	r, w := p.make()

	pt := s.NewPollTask(r)
	require.NoError(t, s.Start(pt))
	assert.Equal(t, []string{pt.ID()}, s.LiveTasks())

	n, err := s.Iteration()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.Wait(pt, 30*time.Millisecond))
	assert.True(t, pt.IsAlive())

	p.writeAndClose(w, "x")
	n, err = s.Iteration()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.Wait(pt, task.Unbounded))
	assert.False(t, pt.IsAlive())
	assert.Equal(t, task.ExitCodeOK, pt.Wait())
	assert.Empty(t, s.LiveTasks())
}

func TestSetIdleTimeout(t *testing.T) {
	s := newScheduler(t, nil)
	assert.Equal(t, 20*time.Millisecond, s.IdleTimeout())

	require.NoError(t, s.SetIdleTimeout(120*time.Millisecond))
	assert.Equal(t, 120*time.Millisecond, s.IdleTimeout())
	assert.Equal(t, "120ms", s.ConfigStore().GetSnapshot()["idle_timeout"])

	s.ConfigStore().SetConfig(map[string]any{"idle_timeout": "0s"})
	assert.Zero(t, s.IdleTimeout())
	start := time.Now()
	_, err := s.Iteration()
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	s.ConfigStore().SetConfig(map[string]any{"idle_timeout": "bogus"})
	assert.Zero(t, s.IdleTimeout())

	assert.ErrorIs(t, s.SetIdleTimeout(-time.Second), api.ErrInvalidArgument)
	assert.Zero(t, s.IdleTimeout())
}

func TestCloseCancelsLiveTasks(t *testing.T) {
	s := newScheduler(t, nil)
	p := newPipes(t)
	r, _ := p.make()

	pt := s.NewPollTask(r)
	require.NoError(t, s.Start(pt))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, task.ExitCodeCancelled, pt.ExitCode())
	assert.False(t, pt.IsAlive())
	assert.Empty(t, s.LiveTasks())
	assert.ErrorIs(t, s.Start(s.NewPollTask(r)), api.ErrMultiplexerClosed)
}

func TestDebugProbes(t *testing.T) {
	s := newScheduler(t, nil)
	p := newPipes(t)
	r, _ := p.make()
	pt := s.NewPollTask(r, task.WithName("probe"))
	require.NoError(t, s.Start(pt))

	state := s.Debug().DumpState()
	assert.Equal(t, 1, state["reactor.registered"])
	assert.Equal(t, []string{"probe"}, state["tasks.live"])
	cfg, ok := state["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 4096, cfg["buffer_size"])
	pt.Cancel()
}

func TestSchedulerWithFakeMultiplexer(t *testing.T) {
	mux := fake.NewMultiplexer()
	cfg := facade.DefaultConfig()
	cfg.EnableMetrics = false
	s := newScheduler(t, cfg, facade.WithMultiplexer(mux))
	assert.Nil(t, s.Metrics())

	pt := s.NewPollTask(7, task.WithName("fake"))
	require.NoError(t, s.Start(pt))
	require.True(t, mux.FireFd(7, api.EventError))

	n, err := s.Iteration()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, task.ExitCodeCancelled, pt.ExitCode())
	assert.Equal(t, []fake.Call{
		{Op: "register", Handle: 1, Fd: 7},
		{Op: "unregister", Handle: 1, Fd: 7},
	}, mux.Calls())
}
