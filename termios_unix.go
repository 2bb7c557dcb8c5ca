//go:build !windows
// +build !windows

package ptyprocess

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// echoPollInterval is the step used when waiting for the line discipline
// to reflect a new echo setting.
const echoPollInterval = 100 * time.Millisecond

// getTermiosFd reads the pty's termios through the given descriptor.
func getTermiosFd(fd int) (*unix.Termios, error) {
	tio, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, fmt.Errorf("%w: tcgetattr: %w", ErrTermios, err)
	}
	return tio, nil
}

// setTermiosFd writes termios back. With flush set, pending input is
// discarded first (TCSAFLUSH); otherwise the change applies immediately
// (TCSANOW).
func setTermiosFd(fd int, tio *unix.Termios, flush bool) error {
	req := uint(ioctlWriteTermios)
	if flush {
		req = ioctlWriteTermiosFlush
	}
	if err := unix.IoctlSetTermios(fd, req, tio); err != nil {
		return fmt.Errorf("%w: tcsetattr: %w", ErrTermios, err)
	}
	return nil
}

// setEchoFd flips the ECHO flag on the terminal behind fd.
func setEchoFd(fd int, on bool) error {
	tio, err := getTermiosFd(fd)
	if err != nil {
		return err
	}
	if on {
		tio.Lflag |= unix.ECHO
	} else {
		tio.Lflag &^= unix.ECHO
	}
	return setTermiosFd(fd, tio, false)
}

// setWinsizeFd applies a window size through fd.
func setWinsizeFd(fd int, size WindowSize) error {
	ws := &unix.Winsize{
		Row:    size.Rows,
		Col:    size.Cols,
		Xpixel: size.Xpixel,
		Ypixel: size.Ypixel,
	}
	if err := unix.IoctlSetWinsize(fd, unix.TIOCSWINSZ, ws); err != nil {
		return fmt.Errorf("%w: TIOCSWINSZ: %w", ErrTermios, err)
	}
	return nil
}

// termChars reads VEOF and VINTR through fd, falling back to the defaults
// when the attributes cannot be read.
func termChars(fd int) (eof, intr byte) {
	eof, intr = DefaultEOFChar, DefaultIntrChar
	if tio, err := unix.IoctlGetTermios(fd, ioctlReadTermios); err == nil {
		eof = tio.Cc[unix.VEOF]
		intr = tio.Cc[unix.VINTR]
	}
	return eof, intr
}

// IsEcho reports whether terminal echo is enabled.
func (p *PtyProcess) IsEcho() (bool, error) {
	tio, err := getTermiosFd(p.master)
	if err != nil {
		return false, err
	}
	return tio.Lflag&unix.ECHO != 0, nil
}

// SetEcho enables or disables terminal echo and returns the previous
// setting.
func (p *PtyProcess) SetEcho(on bool) (bool, error) {
	tio, err := getTermiosFd(p.master)
	if err != nil {
		return false, err
	}
	prev := tio.Lflag&unix.ECHO != 0
	if on {
		tio.Lflag |= unix.ECHO
	} else {
		tio.Lflag &^= unix.ECHO
	}
	if err := setTermiosFd(p.master, tio, false); err != nil {
		return prev, err
	}
	return prev, nil
}

// SetEchoWait sets echo and then polls until the line discipline reflects
// the new value or the timeout elapses. It returns whether the setting was
// observed in time. A timeout of zero or less checks exactly once.
func (p *PtyProcess) SetEchoWait(on bool, timeout time.Duration) (bool, error) {
	if _, err := p.SetEcho(on); err != nil {
		return false, err
	}
	deadline := time.Now().Add(timeout)
	for {
		got, err := p.IsEcho()
		if err != nil {
			return false, err
		}
		if got == on {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		time.Sleep(echoPollInterval)
	}
}

// WindowSize returns the terminal window size.
func (p *PtyProcess) WindowSize() (WindowSize, error) {
	ws, err := unix.IoctlGetWinsize(p.master, unix.TIOCGWINSZ)
	if err != nil {
		return WindowSize{}, fmt.Errorf("%w: TIOCGWINSZ: %w", ErrTermios, err)
	}
	return WindowSize{Rows: ws.Row, Cols: ws.Col, Xpixel: ws.Xpixel, Ypixel: ws.Ypixel}, nil
}

// SetWindowSize changes the terminal window size. The kernel delivers
// SIGWINCH to the child's foreground process group.
func (p *PtyProcess) SetWindowSize(size WindowSize) error {
	return setWinsizeFd(p.master, size)
}

// EOFChar returns the end-of-file control byte configured for this
// process. The default is 0x04 (^D).
func (p *PtyProcess) EOFChar() byte {
	return p.eofChar
}

// IntrChar returns the interrupt control byte configured for this process.
// The default is 0x03 (^C).
func (p *PtyProcess) IntrChar() byte {
	return p.intrChar
}

// EOLChar returns the extra end-of-line character from the line
// discipline. Zero means none is set.
func (p *PtyProcess) EOLChar() (byte, error) {
	tio, err := getTermiosFd(p.master)
	if err != nil {
		return 0, err
	}
	return tio.Cc[unix.VEOL], nil
}

// SetEOFChar changes the end-of-file control character (c_cc[VEOF]) and
// the byte SendEOF writes.
func (p *PtyProcess) SetEOFChar(c byte) error {
	if err := p.setControlChar(unix.VEOF, c); err != nil {
		return err
	}
	p.eofChar = c
	return nil
}

// SetIntrChar changes the interrupt control character (c_cc[VINTR]) and
// the byte SendIntr writes.
func (p *PtyProcess) SetIntrChar(c byte) error {
	if err := p.setControlChar(unix.VINTR, c); err != nil {
		return err
	}
	p.intrChar = c
	return nil
}

// SetEOLChar changes the extra end-of-line character (c_cc[VEOL]).
func (p *PtyProcess) SetEOLChar(c byte) error {
	return p.setControlChar(unix.VEOL, c)
}

func (p *PtyProcess) setControlChar(index int, c byte) error {
	tio, err := getTermiosFd(p.master)
	if err != nil {
		return err
	}
	tio.Cc[index] = c
	return setTermiosFd(p.master, tio, false)
}

// EnterRawMode switches the line discipline to raw mode: canonical
// processing, echo, signal generation and output translation are disabled
// and bytes pass through unmodified. The prior attributes are stashed for
// RestoreMode. Buffered input is flushed so bytes typed under the old mode
// are not re-interpreted.
func (p *PtyProcess) EnterRawMode() error {
	tio, err := getTermiosFd(p.master)
	if err != nil {
		return err
	}
	if p.origTermios == nil {
		saved := *tio
		p.origTermios = &saved
	}

	tio.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	tio.Oflag &^= unix.OPOST
	tio.Cflag &^= unix.CSIZE | unix.PARENB
	tio.Cflag |= unix.CS8
	tio.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0

	return setTermiosFd(p.master, tio, true)
}

// RestoreMode restores the terminal attributes saved by EnterRawMode.
func (p *PtyProcess) RestoreMode() error {
	if p.origTermios == nil {
		return fmt.Errorf("%w: no saved terminal mode", ErrTermios)
	}
	if err := setTermiosFd(p.master, p.origTermios, true); err != nil {
		return err
	}
	p.origTermios = nil
	return nil
}

// IsATTY reports whether the master descriptor refers to a terminal.
func (p *PtyProcess) IsATTY() (bool, error) {
	return term.IsTerminal(p.master), nil
}
