//go:build unix

// Package stdio file: internal/adapter/plugin/stdio/procattr_unix.go
package stdio

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// setProcessGroup 让插件进程成为新进程组的组长，取消时终止整个进程组，
// 插件派生的子进程不会继续持有标准输出。
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
}
