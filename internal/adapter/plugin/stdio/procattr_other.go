//go:build !unix

// Package stdio file: internal/adapter/plugin/stdio/procattr_other.go
package stdio

import "os/exec"

// setProcessGroup 在非 unix 平台上保持 CommandContext 的默认行为，只终止插件进程本身
func setProcessGroup(*exec.Cmd) {}
