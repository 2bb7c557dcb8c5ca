//go:build !windows
// +build !windows

package ptyprocess

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"syscall"
)

// Spawn starts opts.Command attached to a freshly allocated pty.
//
// The child is made a session leader and acquires the pty slave as its
// controlling terminal before exec; its stdin, stdout and stderr are the
// slave. The parent keeps only the master. Echo is turned off on the slave
// before the child starts unless opts.EchoOn is set, so the child never
// observes its own input echoed back.
//
// When opts.Umask is non-negative it is applied around the fork. The umask
// is process-wide, so other goroutines forking concurrently may briefly
// observe it.
func Spawn(opts StartOptions) (*PtyProcess, error) {
	if opts.Command == "" {
		return nil, fmt.Errorf("%w: command is required", ErrSpawn)
	}

	pair, err := OpenPtyPair()
	if err != nil {
		return nil, err
	}

	rows, cols := opts.Rows, opts.Cols
	if rows == 0 {
		rows = DefaultTermRows
	}
	if cols == 0 {
		cols = DefaultTermCols
	}
	if err := setWinsizeFd(pair.Master, WindowSize{Rows: rows, Cols: cols}); err != nil {
		pair.Close()
		return nil, fmt.Errorf("%w: set initial window size: %w", ErrSpawn, err)
	}

	if !opts.EchoOn {
		if err := setEchoFd(int(pair.Slave.Fd()), false); err != nil {
			pair.Close()
			return nil, fmt.Errorf("%w: disable echo: %w", ErrSpawn, err)
		}
	}

	cmd := exec.Command(opts.Command, opts.Args...)
	cmd.Env = os.Environ()
	for k, v := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	cmd.Stdin = pair.Slave
	cmd.Stdout = pair.Slave
	cmd.Stderr = pair.Slave
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}

	if opts.Umask >= 0 {
		old := syscall.Umask(opts.Umask)
		defer syscall.Umask(old)
	}

	if err := cmd.Start(); err != nil {
		pair.Close()
		return nil, classifyStartError(err)
	}

	// The slave now lives in the child; the parent keeps the master only.
	pair.Slave.Close()

	eofChar, intrChar := termChars(pair.Master)

	return &PtyProcess{
		master:          pair.Master,
		slavePath:       pair.SlavePath,
		pid:             cmd.Process.Pid,
		eofChar:         eofChar,
		intrChar:        intrChar,
		lineSep:         []byte("\n"),
		terminateDelay:  DefaultTerminateDelay,
		terminateStages: defaultTerminateStages,
		reaper:          newReaper(cmd.Process.Pid),
	}, nil
}

// classifyStartError maps a Start failure to ErrExec when the program
// itself could not be executed (lookup failure, missing file, permission)
// and to ErrSpawn for everything else. os/exec reports exec failures
// synchronously through its internal error pipe, so by the time Start
// returns there is no child left behind.
func classifyStartError(err error) error {
	var execErr *exec.Error
	var pathErr *fs.PathError
	if errors.As(err, &execErr) || errors.As(err, &pathErr) {
		return fmt.Errorf("%w: %w", ErrExec, err)
	}
	return fmt.Errorf("%w: %w", ErrSpawn, err)
}
