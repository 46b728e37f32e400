//go:build unix

package subprocess

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcAttr places the worker in a new process group.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to the process group led by proc.
func killProcessGroup(proc *os.Process) error {
	if err := unix.Kill(-proc.Pid, unix.SIGKILL); err != nil {
		if err == unix.ESRCH {
			return os.ErrProcessDone
		}

		// Fall back to the leader alone.
		return proc.Kill()
	}

	return nil
}
