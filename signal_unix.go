//go:build !windows
// +build !windows

package ptyprocess

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// defaultTerminateStages is the escalation Exit walks before SIGKILL:
// first SIGHUP, then SIGCONT (in case the child is stopped) followed by
// SIGTERM.
var defaultTerminateStages = [][]syscall.Signal{
	{unix.SIGHUP},
	{unix.SIGCONT, unix.SIGTERM},
}

// GradualTerminateStages is a gentler alternative escalation that tries
// SIGINT before SIGTERM, one signal per stage. Install it with
// SetTerminateStages.
var GradualTerminateStages = [][]syscall.Signal{
	{unix.SIGHUP},
	{unix.SIGCONT},
	{unix.SIGINT},
	{unix.SIGTERM},
}

// Kill sends a signal to the child. Signaling a child whose terminal
// status has already been observed is a no-op, not an error. ESRCH on a
// child that was never reaped is reported as ErrNoSuchProcess.
func (p *PtyProcess) Kill(sig syscall.Signal) error {
	if p.reaper.Reaped() {
		return nil
	}
	err := unix.Kill(p.pid, sig)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ESRCH) {
		if p.reaper.Reaped() {
			return nil
		}
		return fmt.Errorf("%w: pid %d", ErrNoSuchProcess, p.pid)
	}
	return fmt.Errorf("kill pid %d: %w", p.pid, err)
}

// Signal is an alias for Kill.
func (p *PtyProcess) Signal(sig syscall.Signal) error {
	return p.Kill(sig)
}

// SignalGroup sends a signal to the child's process group. The child is a
// session leader, so its group id equals its pid.
func (p *PtyProcess) SignalGroup(sig syscall.Signal) error {
	if p.reaper.Reaped() {
		return nil
	}
	err := unix.Kill(-p.pid, sig)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ESRCH) {
		if p.reaper.Reaped() {
			return nil
		}
		return fmt.Errorf("%w: pgid %d", ErrNoSuchProcess, p.pid)
	}
	return fmt.Errorf("kill pgid %d: %w", p.pid, err)
}

// SetTerminateDelay changes how long Exit waits after each escalation
// stage before moving on.
func (p *PtyProcess) SetTerminateDelay(d time.Duration) {
	p.terminateDelay = d
}

// SetTerminateStages replaces the signal escalation Exit walks before
// SIGKILL. Each stage is sent as a burst, then the child is polled for the
// terminate delay.
func (p *PtyProcess) SetTerminateStages(stages [][]syscall.Signal) {
	p.terminateStages = stages
}

// Exit tries to terminate the child, escalating through the configured
// signal stages and polling after each one. With force set, a child that
// survives the escalation is killed with SIGKILL and reaped with a
// blocking wait. Exit returns true once the child is gone; a child that is
// already reaped counts as gone.
func (p *PtyProcess) Exit(force bool) (bool, error) {
	alive, err := p.IsAlive()
	if err != nil {
		return false, err
	}
	if !alive {
		return true, nil
	}

	for _, stage := range p.terminateStages {
		for _, sig := range stage {
			if err := p.Kill(sig); err != nil {
				return false, err
			}
		}
		gone, err := p.pollGone(p.terminateDelay)
		if err != nil {
			return false, err
		}
		if gone {
			return true, nil
		}
	}

	if !force {
		return false, nil
	}

	if err := p.Kill(unix.SIGKILL); err != nil {
		return false, err
	}
	if _, err := p.Wait(); err != nil {
		return false, err
	}
	return true, nil
}

// pollGone polls the child's liveness for up to timeout, measured on the
// monotonic clock, sleeping ~1ms between probes.
func (p *PtyProcess) pollGone(timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		alive, err := p.IsAlive()
		if err != nil {
			return false, err
		}
		if !alive {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		time.Sleep(time.Millisecond)
	}
}
