//go:build !windows
// +build !windows

package ptyprocess

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// PtyProcess is a child process running under a pseudoterminal.
//
// It owns the pty master descriptor and the child's pid exclusively, and
// composes terminal control, signaling and status collection over them.
// The zero value is not usable; create one with Spawn.
//
// Reads and writes go through the kernel line discipline: input may be
// echoed back, and a "\n" written by the child comes out as "\r\n" on the
// master side while ONLCR is set.
type PtyProcess struct {
	master    int
	slavePath string
	pid       int

	eofChar  byte
	intrChar byte
	lineSep  []byte

	terminateDelay  time.Duration
	terminateStages [][]syscall.Signal

	origTermios *unix.Termios

	reaper    *reaper
	closeOnce sync.Once
	closeErr  error
}

// Pid returns the child's process id. It is stable for the lifetime of the
// PtyProcess, including after the child has been reaped.
func (p *PtyProcess) Pid() int {
	return p.pid
}

// MasterFd returns the raw master descriptor. The descriptor is borrowed:
// the caller must not close it.
func (p *PtyProcess) MasterFd() int {
	return p.master
}

// SlavePath returns the slave device path the child is attached to.
func (p *PtyProcess) SlavePath() string {
	return p.slavePath
}

// GetRawHandle returns the master as an *os.File over a duplicated
// descriptor, for callers that want to plug the pty into io helpers
// directly. Status flags are shared with every duplicate of the master,
// so switching it to non-blocking mode affects them all.
func (p *PtyProcess) GetRawHandle() (*os.File, error) {
	fd, err := dupFd(p.master)
	if err != nil {
		return nil, fmt.Errorf("failed to clone pty master: %w", err)
	}
	return os.NewFile(uintptr(fd), p.slavePath), nil
}

// Read reads the child's terminal output from the master. End-of-stream
// after the child has exited is reported as io.EOF on every platform.
func (p *PtyProcess) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	return readPty(p.master, b, p.childExited)
}

// Write writes bytes to the child's terminal input.
func (p *PtyProcess) Write(b []byte) (int, error) {
	return writePty(p.master, b)
}

// Send writes data to the child's terminal input in full.
func (p *PtyProcess) Send(data []byte) error {
	_, err := p.Write(data)
	return err
}

// SendLine writes data followed by the line separator. The default
// separator is "\n"; the pty's ONLCR translation handles CR generation.
func (p *PtyProcess) SendLine(data []byte) error {
	buf := make([]byte, 0, len(data)+len(p.lineSep))
	buf = append(buf, data...)
	buf = append(buf, p.lineSep...)
	return p.Send(buf)
}

// SetLineSeparator changes the terminator SendLine appends.
func (p *PtyProcess) SetLineSeparator(sep []byte) {
	p.lineSep = append([]byte(nil), sep...)
}

// SendControl writes the control byte for Ctrl+<c>, e.g. 'c' for SIGINT
// generation, 'd' for end-of-file, 'z' for suspend.
func (p *PtyProcess) SendControl(c byte) error {
	b, ok := controlChar(c)
	if !ok {
		return fmt.Errorf("no control character for %q", c)
	}
	return p.Send([]byte{b})
}

// SendEOF writes the configured end-of-file byte (^D by default).
func (p *PtyProcess) SendEOF() error {
	return p.Send([]byte{p.eofChar})
}

// SendIntr writes the configured interrupt byte (^C by default).
func (p *PtyProcess) SendIntr() error {
	return p.Send([]byte{p.intrChar})
}

// Status collects the child's state without blocking. Stopped and
// continued children are reported as such; once a terminal status has been
// observed it is cached and returned on every later call.
func (p *PtyProcess) Status() (ChildStatus, error) {
	return p.reaper.Status()
}

// Wait blocks until the child exits or is killed by a signal, and returns
// the terminal status. Calling Wait again returns the same status without
// blocking. An interrupting signal is surfaced as ErrWait.
func (p *PtyProcess) Wait() (ChildStatus, error) {
	return p.reaper.Wait()
}

// IsAlive reports whether the child still exists. Stopped and continued
// children count as alive; a child that exited, was signaled, or is gone
// from the kernel's view does not.
func (p *PtyProcess) IsAlive() (bool, error) {
	st, err := p.Status()
	if err != nil {
		if errors.Is(err, unix.ECHILD) || errors.Is(err, unix.ESRCH) {
			return false, nil
		}
		return false, err
	}
	switch st.Kind {
	case StatusRunning, StatusStopped, StatusContinued:
		return true, nil
	default:
		return false, nil
	}
}

// childExited reports whether a terminal status has been observed,
// refreshing via a non-blocking wait when it has not.
func (p *PtyProcess) childExited() bool {
	if p.reaper.Reaped() {
		return true
	}
	st, err := p.reaper.Status()
	if err != nil {
		// ECHILD and friends: there is no child left to produce output.
		return true
	}
	return st.Terminal()
}

// Close releases the PtyProcess. A child that has not been reaped is
// terminated best-effort with the full escalation up to SIGKILL, then the
// master descriptor is closed. Close never panics and is safe to call
// more than once; explicit Exit is the path that reports errors.
func (p *PtyProcess) Close() error {
	p.closeOnce.Do(func() {
		if !p.reaper.Reaped() {
			_, _ = p.Exit(true)
		}
		p.closeErr = unix.Close(p.master)
	})
	return p.closeErr
}
