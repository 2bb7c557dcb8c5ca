//go:build !windows
// +build !windows

package ptyprocess

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sys/unix"
)

// Stream is a byte-level handle on the pty master, backed by a duplicated
// descriptor. Closing a Stream never closes the process's master.
//
// Duplicated descriptors share their file status flags, so SetBlocking on
// one Stream affects every other handle on the same master, including the
// PtyProcess itself. Coordinate externally when mixing modes.
type Stream struct {
	mu     sync.Mutex
	fd     int
	closed bool

	// childExited gates the EIO-on-read normalization; nil means never
	// normalize.
	childExited func() bool
}

// GetStream returns a new Stream over a duplicate of the master
// descriptor.
func (p *PtyProcess) GetStream() (*Stream, error) {
	fd, err := dupFd(p.master)
	if err != nil {
		return nil, fmt.Errorf("failed to clone pty master: %w", err)
	}
	return &Stream{fd: fd, childExited: p.childExited}, nil
}

// Read reads from the pty master. On Linux a read from a master whose
// slave side is gone fails with EIO; that is reported as io.EOF once the
// child has been observed to exit, and surfaced as an error otherwise.
// In non-blocking mode a read that would block returns ErrWouldBlock.
func (s *Stream) Read(b []byte) (int, error) {
	fd, err := s.handle()
	if err != nil {
		return 0, err
	}
	if len(b) == 0 {
		return 0, nil
	}
	return readPty(fd, b, s.childExited)
}

// Write writes to the pty master, retrying short writes until all of b is
// consumed. In non-blocking mode a write that would block returns the
// number of bytes written so far and ErrWouldBlock.
func (s *Stream) Write(b []byte) (int, error) {
	fd, err := s.handle()
	if err != nil {
		return 0, err
	}
	return writePty(fd, b)
}

// Flush is a no-op; the kernel pty driver owns all buffering at this
// layer.
func (s *Stream) Flush() error {
	return nil
}

// SetBlocking flips the descriptor between blocking and non-blocking mode
// without disturbing other status flags. The mode is shared with every
// duplicate of the master.
func (s *Stream) SetBlocking(blocking bool) error {
	fd, err := s.handle()
	if err != nil {
		return err
	}
	return setNonblock(fd, !blocking)
}

// TryClone returns an independent Stream over another duplicate of the
// descriptor.
func (s *Stream) TryClone() (*Stream, error) {
	fd, err := s.handle()
	if err != nil {
		return nil, err
	}
	nfd, err := dupFd(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to clone stream: %w", err)
	}
	return &Stream{fd: nfd, childExited: s.childExited}, nil
}

// Fd returns the underlying descriptor for registration with an external
// reactor. The caller must not close it.
func (s *Stream) Fd() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd
}

// Close closes the duplicated descriptor. It is safe to call twice.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

func (s *Stream) handle() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return -1, ErrClosed
	}
	return s.fd, nil
}

// readPty performs one read on a pty master descriptor, retrying EINTR
// and normalizing end-of-stream: a zero-byte read (BSD) and EIO after the
// child exited (Linux) both become io.EOF.
func readPty(fd int, b []byte, childExited func() bool) (int, error) {
	for {
		n, err := unix.Read(fd, b)
		if err == nil {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.EAGAIN) {
			return 0, ErrWouldBlock
		}
		if errors.Is(err, unix.EIO) && childExited != nil && childExited() {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("read pty master: %w", err)
	}
}

// writePty writes all of b to a pty master descriptor, retrying EINTR and
// short writes.
func writePty(fd int, b []byte) (int, error) {
	var total int
	for total < len(b) {
		n, err := unix.Write(fd, b[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EAGAIN) {
				return total, ErrWouldBlock
			}
			return total, fmt.Errorf("write pty master: %w", err)
		}
	}
	return total, nil
}
