//go:build unix

// Package osutil holds the platform-specific parts of running hook processes.
package osutil

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// IsolateProcessGroup starts cmd in its own process group and makes context
// cancellation kill the whole group, so children a hook script forks do not
// outlive it. Call before cmd.Start.
func IsolateProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
