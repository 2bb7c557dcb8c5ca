//go:build !windows
// +build !windows

package ptyprocess

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// reaper serializes wait-status collection for a single child so the pid
// is never waited on twice. Once a terminal status is observed it is
// cached and returned forever after.
type reaper struct {
	mu     sync.Mutex
	pid    int
	last   ChildStatus
	reaped bool
}

func newReaper(pid int) *reaper {
	return &reaper{pid: pid, last: ChildStatus{Kind: StatusRunning}}
}

// Reaped reports whether a terminal status has been observed, without
// issuing a syscall.
func (r *reaper) Reaped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reaped
}

// Status collects the child's state without blocking. Stopped and
// continued children are reported as such. EINTR is retried.
func (r *reaper) Status() (ChildStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reaped {
		return r.last, nil
	}

	var ws unix.WaitStatus
	var wpid int
	var err error
	for {
		wpid, err = unix.Wait4(r.pid, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		return ChildStatus{}, fmt.Errorf("wait4 pid %d: %w", r.pid, err)
	}
	if wpid == 0 {
		r.last = ChildStatus{Kind: StatusRunning}
		return r.last, nil
	}

	r.record(decodeWaitStatus(ws))
	return r.last, nil
}

// Wait blocks until the child exits or is killed by a signal. After a
// terminal status has been observed, Wait returns the cached status
// immediately. EINTR is surfaced as ErrWait so callers can cancel.
func (r *reaper) Wait() (ChildStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reaped {
		return r.last, nil
	}

	var ws unix.WaitStatus
	if _, err := unix.Wait4(r.pid, &ws, 0, nil); err != nil {
		if errors.Is(err, unix.EINTR) {
			return ChildStatus{}, fmt.Errorf("%w: %w", ErrWait, err)
		}
		return ChildStatus{}, fmt.Errorf("wait4 pid %d: %w", r.pid, err)
	}

	r.record(decodeWaitStatus(ws))
	return r.last, nil
}

func (r *reaper) record(st ChildStatus) {
	r.last = st
	if st.Terminal() {
		r.reaped = true
	}
}

// decodeWaitStatus translates a kernel wait status into a ChildStatus.
func decodeWaitStatus(ws unix.WaitStatus) ChildStatus {
	switch {
	case ws.Exited():
		return ChildStatus{Kind: StatusExited, ExitCode: ws.ExitStatus()}
	case ws.Signaled():
		return ChildStatus{Kind: StatusSignaled, Signal: ws.Signal(), CoreDumped: ws.CoreDump()}
	case ws.Stopped():
		return ChildStatus{Kind: StatusStopped, Signal: ws.StopSignal()}
	case ws.Continued():
		return ChildStatus{Kind: StatusContinued}
	default:
		return ChildStatus{Kind: StatusRunning}
	}
}
