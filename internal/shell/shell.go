// Package shell file: internal/shell/shell.go
package shell

import (
	"PlugShell/internal/adapter/plugin/stdio"
	"PlugShell/internal/core/port"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrExit 由 exit 命令返回，表示结束交互循环
var ErrExit = errors.New("退出 shell")

// Console 是 shell 的输出端，在 MessageSink 之上增加提示符、成功提示与弱化文本
type Console interface {
	port.MessageSink
	Prompt(text string)
	Success(format string, args ...any)
	Dim(text string) string
}

// Shell 是逐行读取命令的交互循环。每一行都会构造一棵新的命令树来执行，
// 命令之间不共享解析状态。
type Shell struct {
	plugins port.PluginLifecycle
	options port.OptionStore
	console Console
	prompt  string
}

// Option 用于定制 Shell
type Option func(*Shell)

// WithPrompt 设置提示符
func WithPrompt(prompt string) Option {
	return func(s *Shell) { s.prompt = prompt }
}

// New 创建一个 shell
func New(plugins port.PluginLifecycle, options port.OptionStore, console Console, opts ...Option) *Shell {
	s := &Shell{
		plugins: plugins,
		options: options,
		console: console,
		prompt:  "plugshell> ",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run 从 in 逐行读取并执行命令，直到输入结束、执行 exit 或 ctx 结束
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		s.console.Prompt(s.prompt)
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("读取输入失败: %w", err)
					}
				default:
				}
				return nil
			}
			if err := s.Exec(ctx, line); errors.Is(err, ErrExit) {
				return nil
			}
		}
	}
}

// Exec 解析并执行一行命令。错误已经报告给用户后才返回，返回值供调用方判断是否退出。
func (s *Shell) Exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	tokens, err := stdio.Tokenize(line)
	if err != nil {
		err = fmt.Errorf("无法解析命令: 引号未闭合")
		s.console.Error(err.Error())
		return err
	}

	root := s.newRootCommand()
	root.SetArgs(tokens)
	err = root.ExecuteContext(ctx)
	if err == nil || errors.Is(err, ErrExit) {
		return err
	}

	var re reportedError
	if !errors.As(err, &re) {
		s.console.Error(err.Error())
	}
	slog.Debug("[Shell] 命令执行失败", "command", tokens[0], "error", err)
	return err
}

// reportedError 标记已经由插件管理器报告给用户的错误，避免重复输出
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}
