// Package stdio file: internal/adapter/plugin/stdio/executor.go
package stdio

import (
	"PlugShell/internal/core/domain"
	"PlugShell/internal/core/port"
	"PlugShell/internal/observe"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

const maxLineSize = 1 << 20 // 1MB

// killGrace 是取消后等待输出管道关闭的宽限期，超过后强制关闭管道
const killGrace = 500 * time.Millisecond

// Executor 是进程传输层：每次调用启动一个新的插件进程，
// 逐行解释其标准输出，并把整个交互归约为一个 ActionResult。
type Executor struct {
	sink    port.MessageSink
	options port.OptionStore
	stderr  io.Writer
	timeout time.Duration
}

// 静态断言
var _ port.ActionExecutor = (*Executor)(nil)

// ExecutorOption 配置 Executor
type ExecutorOption func(*Executor)

// WithStderr 指定插件标准错误的去向，默认为宿主的标准错误
func WithStderr(w io.Writer) ExecutorOption {
	return func(e *Executor) { e.stderr = w }
}

// WithTimeout 为每次调用设置上限，0 表示不限制
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// NewExecutor 创建进程传输层
func NewExecutor(sink port.MessageSink, options port.OptionStore, opts ...ExecutorOption) *Executor {
	e := &Executor{sink: sink, options: options, stderr: os.Stderr}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute 以 args 启动 path 指向的插件并等待其结束。
// args[0] 是动作名称。只有在参数非法或进程无法启动时才返回错误；
// 插件自身的失败体现在 ActionResult.Outcome 中。
func (e *Executor) Execute(ctx context.Context, path string, args ...string) (domain.ActionResult, error) {
	failed := domain.ActionResult{Outcome: domain.OutcomeFailed, ExitCode: -1}
	if path == "" || len(args) == 0 || args[0] == "" {
		return failed, fmt.Errorf("%w: 路径与动作名称均不能为空", port.ErrInvalidInvocation)
	}
	action := args[0]
	logger := slog.With("invocation_id", uuid.NewString(), "path", path, "action", action)
	start := time.Now()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = e.stderr
	cmd.WaitDelay = killGrace
	setProcessGroup(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return failed, fmt.Errorf("%w: 创建标准输入管道失败: %v", port.ErrSpawn, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		_ = stdin.Close()
		return failed, fmt.Errorf("%w: 创建标准输出管道失败: %v", port.ErrSpawn, err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		observe.ObserveInvocation(action, "spawn_error", time.Since(start))
		logger.Warn("启动插件进程失败", "error", err)
		return failed, fmt.Errorf("%w '%s': %v", port.ErrSpawn, path, err)
	}
	logger.Debug("插件进程已启动", "pid", cmd.Process.Pid)

	// 脱离进程组的后代仍可能持有标准输出，取消后超过宽限期即关闭读端
	stopWatch := context.AfterFunc(ctx, func() {
		time.AfterFunc(killGrace, func() { _ = stdout.Close() })
	})
	defer stopWatch()

	session := NewSession(ctx, e.sink, e.options, stdin)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := session.HandleLine(scanner.Text()); err != nil {
			logger.Warn("getOption 应答失败", "error", err)
			e.sink.Error(err.Error())
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		e.sink.Error(fmt.Sprintf("读取插件 '%s' 输出失败: %v", path, err))
		// 继续排空输出，避免插件阻塞在写管道上导致 Wait 无法返回
		_, _ = io.Copy(io.Discard, stdout)
	}

	result := e.release(cmd, stdin, logger)
	result.Answer = session.Answer()
	result.LastLine = session.LastLine()

	if ctx.Err() != nil {
		e.sink.Error(fmt.Sprintf("插件 '%s' 的动作 '%s' 被中止: %v", path, action, ctx.Err()))
	}
	observe.ObserveInvocation(action, result.Outcome.String(), time.Since(start))
	logger.Debug("插件动作结束", "outcome", result.Outcome.String(), "exit_code", result.ExitCode)
	return result, nil
}

// release 关闭标准输入并回收进程，返回由退出码得到的结果。
// 回收本身的异常只做报告，不改变已得到的退出码。
func (e *Executor) release(cmd *exec.Cmd, stdin io.Closer, logger *slog.Logger) domain.ActionResult {
	if err := stdin.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Debug("关闭插件标准输入失败", "error", err)
	}

	waitErr := cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		return domain.ResultFromExit(0)
	case errors.As(waitErr, &exitErr):
		return domain.ResultFromExit(exitErr.ExitCode())
	}

	e.sink.Error(fmt.Sprintf("回收插件进程时出错: %v", waitErr))
	logger.Warn("回收插件进程时出错", "error", waitErr)
	if cmd.ProcessState != nil {
		return domain.ResultFromExit(cmd.ProcessState.ExitCode())
	}
	return domain.ActionResult{Outcome: domain.OutcomeFailed, ExitCode: -1}
}
