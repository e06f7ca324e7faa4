//go:build unix

// File: adapters/process_unix.go
// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// ProcessTask runs a child process whose stdout (and stderr, unless the
// caller set one) is a pipe read through a PipeReader. The child is reaped on
// a helper goroutine which closes a second pipe when done; that pipe is
// watched by a PollTask, so neither a dispatch cycle nor a reap ever blocks
// on a child that closed its output but keeps running.

package adapters

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/momentics/polltask/api"
	"github.com/momentics/polltask/core/task"
)

// nonblockPipe returns a pipe whose read end is non-blocking. The write end
// stays blocking. Both ends are close-on-exec.
func nonblockPipe() (r int, w *os.File, err error) {
	var fds [2]int
	syscall.ForkLock.RLock()
	err = unix.Pipe(fds[:])
	if err == nil {
		unix.CloseOnExec(fds[0])
		unix.CloseOnExec(fds[1])
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return -1, nil, fmt.Errorf("pipe: %w", err)
	}
	if err := unix.SetNonblock(fds[0], true); err != nil {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
		return -1, nil, fmt.Errorf("pipe nonblock: %w", err)
	}
	return fds[0], os.NewFile(uintptr(fds[1]), "|1"), nil
}

// ProcessTask is a task backed by a child process.
type ProcessTask struct {
	*task.AsyncTask

	mux  api.Multiplexer
	cmd  *exec.Cmd
	opts []task.Option

	mu      sync.Mutex
	reader  *PipeReader
	exit    *task.PollTask
	fds     []int
	reaped  chan struct{}
	status  int
	waitErr error
}

// NewProcessTask returns an unstarted task for cmd. Argument construction
// stays with the caller; cmd must not have been started.
func NewProcessTask(mux api.Multiplexer, cmd *exec.Cmd, opts ...task.Option) *ProcessTask {
	p := &ProcessTask{mux: mux, cmd: cmd, opts: opts, status: task.ExitCodeFailed}
	p.AsyncTask = task.NewAsyncTask(task.NameOf(opts), p)
	p.AsyncTask.SetObserver(task.ObserverOf(opts))
	return p
}

// Pid returns the child's process id, or 0 before Start.
func (p *ProcessTask) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Output returns everything the child wrote to the pipe so far.
func (p *ProcessTask) Output() []byte {
	p.mu.Lock()
	r := p.reader
	p.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Output()
}

// OnStart spawns the child and registers the read ends of its output pipe
// and of its exit notification pipe.
func (p *ProcessTask) OnStart() error {
	rfd, wf, err := nonblockPipe()
	if err != nil {
		return err
	}
	xfd, xw, err := nonblockPipe()
	if err != nil {
		_ = unix.Close(rfd)
		_ = wf.Close()
		return err
	}
	p.cmd.Stdout = wf
	if p.cmd.Stderr == nil {
		p.cmd.Stderr = wf
	}
	err = p.cmd.Start()
	// The child holds its own copy of the write end.
	_ = wf.Close()
	if err != nil {
		_ = unix.Close(rfd)
		_ = unix.Close(xfd)
		_ = xw.Close()
		return fmt.Errorf("%s: start: %w", p.ID(), err)
	}
	p.mu.Lock()
	p.fds = []int{rfd, xfd}
	p.mu.Unlock()

	r := NewPipeReader(p.mux, p.ID()+"/output", []int{rfd}, p.opts...)
	exitOpts := append(slices.Clone(p.opts),
		task.WithName(p.ID()+"/exit"),
		task.WithObserver(nil),
		task.WithOnData(nil),
	)
	exit := task.NewPollTask(p.mux, xfd, exitOpts...)
	if err := r.Start(); err != nil {
		p.abort(xw)
		return err
	}
	if err := exit.Start(); err != nil {
		r.Cancel()
		p.abort(xw)
		return err
	}

	reaped := make(chan struct{})
	p.mu.Lock()
	p.reader = r
	p.exit = exit
	p.reaped = reaped
	p.mu.Unlock()
	go p.reap(reaped, xw)

	r.AddExitListener(p.partFinished)
	exit.AddExitListener(p.partFinished)
	return nil
}

// abort kills and reaps a child whose pipes could not be registered.
func (p *ProcessTask) abort(xw *os.File) {
	_ = p.cmd.Process.Kill()
	_ = p.cmd.Wait()
	_ = xw.Close()
	p.closeFds()
}

// reap waits for the child and publishes its status, then closes the write
// end of the exit pipe so the exit task sees end of stream.
func (p *ProcessTask) reap(reaped chan struct{}, xw *os.File) {
	err := p.cmd.Wait()
	status := exitStatus(p.cmd.ProcessState)
	p.mu.Lock()
	p.status = status
	p.waitErr = err
	p.mu.Unlock()
	close(reaped)
	_ = xw.Close()
}

// exitStatus maps a child killed by a signal to 128 plus the signal number.
func exitStatus(st *os.ProcessState) int {
	if st == nil {
		return task.ExitCodeFailed
	}
	if ws, ok := st.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return st.ExitCode()
}

// partFinished runs when the output reader or the exit task ends. The task
// completes once both ended; either one cancelled cancels the process.
func (p *ProcessTask) partFinished(code int) {
	if code == task.ExitCodeCancelled {
		p.Cancel()
		return
	}
	if !p.Alive() {
		p.Wait()
	}
}

func (p *ProcessTask) kill() {
	if p.cmd.Process == nil {
		return
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.Fail(err)
	}
}

// OnCancel kills the child and stops watching its pipes.
func (p *ProcessTask) OnCancel() {
	p.kill()
	p.mu.Lock()
	r, exit := p.reader, p.exit
	p.mu.Unlock()
	if r != nil {
		r.Cancel()
		exit.Cancel()
	}
}

// OnWait drives the multiplexer until the output is drained and the child
// exited, then returns its exit status.
func (p *ProcessTask) OnWait() int {
	p.mu.Lock()
	r, exit, reaped := p.reader, p.exit, p.reaped
	p.mu.Unlock()
	if r == nil {
		return task.ExitCodeFailed
	}
	if p.Alive() {
		if err := task.WaitLoop(p.mux, p, task.Unbounded); err != nil {
			p.Fail(err)
			p.kill()
			r.Cancel()
			exit.Cancel()
		}
	}
	if r.Wait() == task.ExitCodeFailed {
		p.Fail(r.Err())
	}
	if exit.Wait() == task.ExitCodeFailed {
		p.Fail(exit.Err())
	}
	p.closeFds()

	// Either the exit pipe hung up or the child was killed: this does not
	// block for long.
	<-reaped
	p.mu.Lock()
	status, err := p.status, p.waitErr
	p.mu.Unlock()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		p.Fail(fmt.Errorf("%s: wait: %w", p.ID(), err))
	}
	return status
}

func (p *ProcessTask) closeFds() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, fd := range p.fds {
		_ = unix.Close(fd)
	}
	p.fds = nil
}

// Alive reports whether the child's output is still being read or the child
// has not been reaped yet.
func (p *ProcessTask) Alive() bool {
	p.mu.Lock()
	r, exit := p.reader, p.exit
	p.mu.Unlock()
	return r != nil && (r.IsAlive() || exit.IsAlive())
}

// InDispatch reports whether one of the task's callbacks is running.
func (p *ProcessTask) InDispatch() bool {
	p.mu.Lock()
	r, exit := p.reader, p.exit
	p.mu.Unlock()
	return r != nil && (r.InDispatch() || exit.InDispatch())
}
