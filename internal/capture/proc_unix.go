//go:build unix

package capture

import (
	"os"
	"os/exec"
	"syscall"
)

func detachProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// exitedOnInterrupt reports an ffmpeg that stopped because of SIGINT:
// it exits 255 after flushing, or dies from the signal when it had no
// handler installed yet.
func exitedOnInterrupt(state *os.ProcessState) bool {
	if state == nil {
		return false
	}
	if state.ExitCode() == 255 {
		return true
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	return ok && ws.Signaled() && ws.Signal() == syscall.SIGINT
}
