//go:build !unix

package ops

import "os"

// terminateProcess kills the process directly on platforms without POSIX
// signal delivery.
func terminateProcess(process *os.Process) error {
	if process == nil {
		return nil
	}
	return process.Kill()
}
