package ptyprocess

import "errors"

var (
	// ErrPtyAllocation is returned when opening, granting or unlocking the
	// pty pair fails, or when the slave device path cannot be resolved.
	ErrPtyAllocation = errors.New("pty allocation failed")

	// ErrSpawn is returned when the child process could not be forked or a
	// parent-side syscall failed before exec.
	ErrSpawn = errors.New("spawn failed")

	// ErrExec is returned when the program could not be executed: it was
	// not found on PATH, or the exec in the forked child failed.
	ErrExec = errors.New("exec failed")

	// ErrNoSuchProcess is returned when a signal is sent to a child that no
	// longer exists and no terminal status has been observed for it.
	ErrNoSuchProcess = errors.New("no such process")

	// ErrTermios is returned when reading or writing terminal attributes
	// fails.
	ErrTermios = errors.New("termios operation failed")

	// ErrWait is returned when a blocking wait is interrupted by a signal.
	// The interrupt is surfaced instead of retried so callers can implement
	// their own cancellation.
	ErrWait = errors.New("wait interrupted")

	// ErrWouldBlock is returned by reads and writes on a non-blocking
	// stream when the operation would otherwise block.
	ErrWouldBlock = errors.New("operation would block")

	// ErrClosed is returned when operating on a closed stream.
	ErrClosed = errors.New("pty stream is closed")
)
