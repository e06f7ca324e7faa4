package task_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/polltask/core/task"
)

type stubWork struct {
	alive     bool
	startErr  error
	starts    int
	cancels   int
	waits     int
	exitCode  int
	onWaitRun func()
}

func (s *stubWork) OnStart() error {
	s.starts++
	if s.startErr != nil {
		return s.startErr
	}
	s.alive = true
	return nil
}

func (s *stubWork) OnCancel() {
	s.cancels++
	s.alive = false
}

func (s *stubWork) OnWait() int {
	s.waits++
	if s.onWaitRun != nil {
		s.onWaitRun()
	}
	s.alive = false
	return s.exitCode
}

func (s *stubWork) Alive() bool { return s.alive }

func TestAsyncTaskGeneratesID(t *testing.T) {
	a := task.NewAsyncTask("", &stubWork{})
	b := task.NewAsyncTask("", &stubWork{})
	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, "emerge", task.NewAsyncTask("emerge", &stubWork{}).ID())
}

func TestAsyncTaskStartOnce(t *testing.T) {
	w := &stubWork{}
	at := task.NewAsyncTask("job", w)

	require.NoError(t, at.Start())
	assert.ErrorIs(t, at.Start(), task.ErrAlreadyStarted)
	assert.Equal(t, 1, w.starts)
	assert.True(t, at.IsAlive())
	assert.Equal(t, task.ExitCodePending, at.ExitCode())
}

func TestAsyncTaskStartFailure(t *testing.T) {
	boom := errors.New("boom")
	at := task.NewAsyncTask("job", &stubWork{startErr: boom})

	assert.ErrorIs(t, at.Start(), boom)
	assert.Equal(t, task.ExitCodeFailed, at.ExitCode())
	assert.ErrorIs(t, at.Err(), boom)
	assert.True(t, at.Finished())
}

func TestAsyncTaskWaitIsIdempotent(t *testing.T) {
	w := &stubWork{exitCode: 7}
	at := task.NewAsyncTask("job", w)
	require.NoError(t, at.Start())

	assert.Equal(t, 7, at.Wait())
	assert.Equal(t, 7, at.Wait())
	assert.Equal(t, 1, w.waits)
	select {
	case <-at.Done():
	default:
		t.Fatal("Done not closed after Wait")
	}
}

func TestAsyncTaskNestedWaitReturnsPending(t *testing.T) {
	w := &stubWork{}
	at := task.NewAsyncTask("job", w)
	var nested int
	w.onWaitRun = func() { nested = at.Wait() }
	require.NoError(t, at.Start())

	assert.Equal(t, task.ExitCodeOK, at.Wait())
	assert.Equal(t, task.ExitCodePending, nested)
}

func TestAsyncTaskCancelIdempotent(t *testing.T) {
	w := &stubWork{}
	at := task.NewAsyncTask("job", w)
	rec := &recorder{}
	at.SetObserver(rec)
	require.NoError(t, at.Start())

	at.Cancel()
	at.Cancel()

	assert.Equal(t, 1, w.cancels)
	assert.Equal(t, 1, w.waits)
	assert.Equal(t, task.ExitCodeCancelled, at.ExitCode())
	assert.True(t, at.Cancelled())
	assert.False(t, at.IsAlive())
	assert.Equal(t, []string{"cancelled"}, rec.Results())
}

func TestAsyncTaskCancelAfterFinishIsNoop(t *testing.T) {
	w := &stubWork{}
	at := task.NewAsyncTask("job", w)
	require.NoError(t, at.Start())
	at.Wait()

	at.Cancel()
	assert.Equal(t, 0, w.cancels)
	assert.Equal(t, task.ExitCodeOK, at.ExitCode())
	assert.False(t, at.Cancelled())
}

func TestAsyncTaskCancelBeforeStart(t *testing.T) {
	at := task.NewAsyncTask("job", &stubWork{})
	at.Cancel()
	assert.ErrorIs(t, at.Start(), task.ErrAlreadyFinished)
	assert.Equal(t, task.ExitCodeCancelled, at.ExitCode())
}

func TestAsyncTaskFailMakesExitCodeNonZero(t *testing.T) {
	at := task.NewAsyncTask("job", &stubWork{})
	require.NoError(t, at.Start())
	first := errors.New("first")
	at.Fail(first)
	at.Fail(errors.New("second"))
	at.Fail(nil)

	assert.Equal(t, task.ExitCodeFailed, at.Wait())
	assert.Equal(t, first, at.Err())
}

func TestAsyncTaskExitListeners(t *testing.T) {
	at := task.NewAsyncTask("job", &stubWork{exitCode: 3})
	require.NoError(t, at.Start())

	var got []int
	at.AddExitListener(func(code int) { got = append(got, code) })
	remove := at.AddExitListener(func(code int) { got = append(got, -100) })
	remove()

	at.Wait()
	at.Wait()
	assert.Equal(t, []int{3}, got)

	// Late listeners run immediately.
	at.AddExitListener(func(code int) { got = append(got, code*10) })
	assert.Equal(t, []int{3, 30}, got)
}
