//go:build !windows
// +build !windows

package ptyprocess

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// PtyPair is a freshly allocated pty master/slave pair.
//
// The master is held as a raw descriptor so the caller keeps full control
// over its blocking mode. The slave stays an *os.File so it can be wired
// directly into a child's stdio. Both descriptors are close-on-exec on the
// parent side.
type PtyPair struct {
	// Master is the raw master descriptor. Blocking by default.
	Master int

	// Slave is the slave end of the pair.
	Slave *os.File

	// SlavePath is the slave device path, e.g. /dev/pts/3.
	SlavePath string
}

// OpenPtyPair allocates a pty pair: it opens the master multiplexer, grants
// and unlocks the slave, resolves the slave device path and opens it.
// Failures at any step return ErrPtyAllocation.
func OpenPtyPair() (*PtyPair, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPtyAllocation, err)
	}

	// Re-home the master onto a descriptor the Go runtime poller has never
	// seen, so fcntl flag changes below stay deterministic.
	masterFd, err := unix.Dup(int(master.Fd()))
	if err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("%w: dup master: %w", ErrPtyAllocation, err)
	}
	master.Close()

	unix.CloseOnExec(masterFd)
	unix.CloseOnExec(int(slave.Fd()))

	if err := setNonblock(masterFd, false); err != nil {
		unix.Close(masterFd)
		slave.Close()
		return nil, fmt.Errorf("%w: reset master flags: %w", ErrPtyAllocation, err)
	}

	return &PtyPair{
		Master:    masterFd,
		Slave:     slave,
		SlavePath: slave.Name(),
	}, nil
}

// SetMasterNonblock flips O_NONBLOCK on the master descriptor.
func (p *PtyPair) SetMasterNonblock(nonblocking bool) error {
	return setNonblock(p.Master, nonblocking)
}

// SetSlaveNonblock flips O_NONBLOCK on the slave descriptor.
func (p *PtyPair) SetSlaveNonblock(nonblocking bool) error {
	return setNonblock(int(p.Slave.Fd()), nonblocking)
}

// Close closes both ends of the pair.
func (p *PtyPair) Close() error {
	var firstErr error
	if p.Master >= 0 {
		if err := unix.Close(p.Master); err != nil && firstErr == nil {
			firstErr = err
		}
		p.Master = -1
	}
	if p.Slave != nil {
		if err := p.Slave.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.Slave = nil
	}
	return firstErr
}

// setNonblock flips O_NONBLOCK on fd without disturbing the other status
// flags.
func setNonblock(fd int, nonblocking bool) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return fmt.Errorf("fcntl F_GETFL: %w", err)
	}
	if nonblocking {
		flags |= unix.O_NONBLOCK
	} else {
		flags &^= unix.O_NONBLOCK
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags); err != nil {
		return fmt.Errorf("fcntl F_SETFL: %w", err)
	}
	return nil
}

// dupFd duplicates fd and marks the copy close-on-exec.
func dupFd(fd int) (int, error) {
	nfd, err := unix.Dup(fd)
	if err != nil {
		return -1, fmt.Errorf("dup: %w", err)
	}
	unix.CloseOnExec(nfd)
	return nfd, nil
}
