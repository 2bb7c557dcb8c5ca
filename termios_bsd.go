//go:build darwin || freebsd || netbsd || openbsd || dragonfly
// +build darwin freebsd netbsd openbsd dragonfly

package ptyprocess

import "golang.org/x/sys/unix"

const (
	ioctlReadTermios       = unix.TIOCGETA
	ioctlWriteTermios      = unix.TIOCSETA
	ioctlWriteTermiosFlush = unix.TIOCSETAF
)
