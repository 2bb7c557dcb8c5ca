//go:build !windows
// +build !windows

package ptyprocess

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"golang.org/x/sys/unix"
)

// For any non-zero window size, setting it and reading it back through the
// pty returns exactly the same dimensions.
func TestWindowSizeProperty(t *testing.T) {
	proc := spawnCat(t, false)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("window size round-trips through the kernel", prop.ForAll(
		func(rows, cols, xpixel, ypixel uint16) bool {
			want := WindowSize{Rows: rows, Cols: cols, Xpixel: xpixel, Ypixel: ypixel}
			if err := proc.SetWindowSize(want); err != nil {
				t.Logf("failed to set window size: %v", err)
				return false
			}
			got, err := proc.WindowSize()
			if err != nil {
				t.Logf("failed to get window size: %v", err)
				return false
			}
			return got == want
		},
		gen.UInt16Range(1, 500),
		gen.UInt16Range(1, 500),
		gen.UInt16Range(0, 2000),
		gen.UInt16Range(0, 2000),
	))

	properties.TestingRun(t)
}

// For any echo setting, SetEcho followed by IsEcho observes that setting,
// and SetEcho reports the previous value truthfully.
func TestEchoProperty(t *testing.T) {
	proc := spawnCat(t, false)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("echo setting round-trips", prop.ForAll(
		func(on bool) bool {
			prev, err := proc.IsEcho()
			if err != nil {
				t.Logf("failed to read echo: %v", err)
				return false
			}
			reported, err := proc.SetEcho(on)
			if err != nil {
				t.Logf("failed to set echo: %v", err)
				return false
			}
			if reported != prev {
				t.Logf("SetEcho reported previous=%v, expected %v", reported, prev)
				return false
			}
			got, err := proc.IsEcho()
			if err != nil {
				t.Logf("failed to read echo back: %v", err)
				return false
			}
			return got == on
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// For any exit code, waiting twice returns the same terminal status and
// the pid is never waited on twice: after the PtyProcess reaped the child,
// a direct wait on the pid reports no such child.
func TestReapOnceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("terminal status is cached and the pid reaped exactly once", prop.ForAll(
		func(code uint8) bool {
			proc, err := Spawn(NewStartOptions("sh", "-c", fmt.Sprintf("exit %d", code)))
			if err != nil {
				t.Logf("failed to spawn: %v", err)
				return false
			}
			defer proc.Close()

			first, err := proc.Wait()
			if err != nil {
				t.Logf("first wait failed: %v", err)
				return false
			}
			if first.Kind != StatusExited || first.ExitCode != int(code) {
				t.Logf("expected exited(%d), got %v", code, first)
				return false
			}

			second, err := proc.Wait()
			if err != nil {
				t.Logf("second wait failed: %v", err)
				return false
			}
			if second != first {
				t.Logf("second wait returned %v, expected %v", second, first)
				return false
			}

			// The kernel must not know the pid as our child anymore.
			var ws unix.WaitStatus
			_, err = unix.Wait4(proc.Pid(), &ws, unix.WNOHANG, nil)
			if !errors.Is(err, unix.ECHILD) {
				t.Logf("expected ECHILD for reaped pid, got %v", err)
				return false
			}
			return true
		},
		gen.UInt8(),
	))

	properties.TestingRun(t)
}

// Every PtyProcess that is closed without an explicit exit leaves no
// zombie behind: the pid is stable while alive, and after Close a direct
// wait reports no such child.
func TestNoZombieOnCloseProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("close reaps the child", prop.ForAll(
		func(echoOn bool) bool {
			opts := NewStartOptions("cat")
			opts.EchoOn = echoOn
			proc, err := Spawn(opts)
			if err != nil {
				t.Logf("failed to spawn: %v", err)
				return false
			}
			pid := proc.Pid()
			if pid <= 0 {
				t.Logf("expected positive pid, got %d", pid)
				return false
			}

			alive, err := proc.IsAlive()
			if err != nil || !alive {
				t.Logf("expected child alive before close: alive=%v err=%v", alive, err)
				return false
			}
			if proc.Pid() != pid {
				t.Logf("pid changed from %d to %d", pid, proc.Pid())
				return false
			}

			if err := proc.Close(); err != nil {
				t.Logf("close failed: %v", err)
				return false
			}

			var ws unix.WaitStatus
			_, err = unix.Wait4(pid, &ws, unix.WNOHANG, nil)
			if !errors.Is(err, unix.ECHILD) {
				t.Logf("expected ECHILD after close, got %v", err)
				return false
			}

			alive, err = proc.IsAlive()
			if err != nil || alive {
				t.Logf("expected child gone after close: alive=%v err=%v", alive, err)
				return false
			}
			return true
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// For any payload of printable text, bytes sent to a cat child come back
// on the master with LF expanded to CRLF and nothing else changed.
func TestSendReadRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("cat round-trips lines modulo CRLF expansion", prop.ForAll(
		func(payload string) bool {
			proc, err := Spawn(NewStartOptions("cat"))
			if err != nil {
				t.Logf("failed to spawn: %v", err)
				return false
			}
			defer proc.Close()

			if err := proc.SendLine([]byte(payload)); err != nil {
				t.Logf("failed to send: %v", err)
				return false
			}

			want := payload + "\r\n"
			got := readAtLeast(t, proc, len(want), 2*time.Second)
			if string(got) != want {
				t.Logf("expected %q, got %q", want, got)
				return false
			}
			return true
		},
		gen.AlphaString().SuchThat(func(s string) bool {
			return len(s) > 0 && len(s) <= 64
		}),
	))

	properties.TestingRun(t)
}
