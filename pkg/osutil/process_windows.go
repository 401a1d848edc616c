//go:build windows

// Package osutil holds the platform-specific parts of running hook processes.
package osutil

import (
	"os"
	"os/exec"
	"syscall"
)

// IsolateProcessGroup gives cmd its own process group. Windows has no group
// kill, so cancellation only terminates the hook process itself.
func IsolateProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Kill)
	}
}
