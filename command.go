package ptyprocess

import "time"

const (
	// DefaultTermRows is the initial number of terminal rows.
	DefaultTermRows uint16 = 24

	// DefaultTermCols is the initial number of terminal columns.
	DefaultTermCols uint16 = 80

	// DefaultEOFChar is the control byte for end-of-file (^D).
	DefaultEOFChar byte = 0x04

	// DefaultIntrChar is the control byte for interrupt (^C).
	DefaultIntrChar byte = 0x03

	// DefaultTerminateDelay is how long Exit waits for the child to die
	// after each escalation step.
	DefaultTerminateDelay = 100 * time.Millisecond
)

// StartOptions describes the command to run under a pty.
//
// Use NewStartOptions to get sensible defaults; a zero StartOptions leaves
// echo off, inherits the umask only when Umask is negative and uses the
// default 80x24 window once Spawn fills in the zero size.
type StartOptions struct {
	// Command is the program to execute. Resolved via PATH when it does
	// not contain a path separator.
	Command string

	// Args are the arguments passed to the program.
	Args []string

	// Env is added on top of the current process environment.
	Env map[string]string

	// Dir is the working directory for the child. Empty inherits the
	// current directory.
	Dir string

	// Umask is applied around the fork when non-negative. Negative leaves
	// the inherited umask untouched.
	Umask int

	// EchoOn keeps terminal echo enabled from the start. The default is
	// echo off, so the child never observes its own input echoed back on
	// first read.
	EchoOn bool

	// Rows and Cols set the initial window size. Zero values default to
	// 24x80.
	Rows uint16
	Cols uint16
}

// NewStartOptions returns StartOptions for the given command with the
// default window size, echo off and the umask inherited.
func NewStartOptions(command string, args ...string) StartOptions {
	return StartOptions{
		Command: command,
		Args:    args,
		Umask:   -1,
		Rows:    DefaultTermRows,
		Cols:    DefaultTermCols,
	}
}
