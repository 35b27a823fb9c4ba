//go:build unix

package ops

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// terminateProcess sends SIGTERM to the process group when the process leads
// one, so helper children spawned by the external tool die with it. Falls
// back to signalling the process alone, then to a hard kill.
func terminateProcess(process *os.Process) error {
	if process == nil {
		return nil
	}
	if pgid, err := unix.Getpgid(process.Pid); err == nil && pgid == process.Pid {
		if err := unix.Kill(-pgid, unix.SIGTERM); err == nil {
			return nil
		}
	}
	err := process.Signal(syscall.SIGTERM)
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return process.Kill()
}
