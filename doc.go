// Package ptyprocess spawns and controls a child process attached to a
// Unix pseudoterminal.
//
// A spawned child becomes a session leader with the pty slave as its
// controlling terminal, so it behaves exactly as if it were running on a
// real terminal: line editing, echo, job-control signals and window size
// all work through the kernel line discipline. The parent talks to the
// child through the pty master as a plain byte stream.
//
// Usage:
//
//	proc, err := ptyprocess.Spawn(ptyprocess.NewStartOptions("cat"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer proc.Close()
//
//	proc.SendLine([]byte("Hello cat"))
//
//	buf := make([]byte, 128)
//	n, _ := proc.Read(buf)
//	fmt.Printf("%s", buf[:n])
//
//	ok, err := proc.Exit(true)
//
// The package is synchronous against kernel syscalls and imposes no
// scheduling model. For event-loop integration, obtain a Stream with
// GetStream, switch it to non-blocking mode and register its Fd with an
// external reactor; reads and writes that would block return ErrWouldBlock.
package ptyprocess
