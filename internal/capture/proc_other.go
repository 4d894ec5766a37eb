//go:build !unix

package capture

import (
	"os"
	"os/exec"
)

func detachProcessGroup(*exec.Cmd) {}

func exitedOnInterrupt(state *os.ProcessState) bool {
	return state != nil && state.ExitCode() == 255
}
