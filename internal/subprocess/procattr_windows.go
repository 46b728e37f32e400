//go:build windows

package subprocess

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// setProcAttr places the worker in a new process group so console control
// events sent to the host do not reach it.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
}

func killProcessGroup(proc *os.Process) error {
	return proc.Kill()
}
