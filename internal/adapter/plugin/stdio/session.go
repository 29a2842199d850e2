// Package stdio file: internal/adapter/plugin/stdio/session.go
package stdio

import (
	"PlugShell/internal/core/domain"
	"PlugShell/internal/core/port"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// State 是会话在读取插件输出时所处的状态
type State int

const (
	// StateStreaming 正在逐行读取插件输出
	StateStreaming State = iota
	// StateAwaitingOptionWrite 读到 getOption 后，正在把选项值写回插件标准输入
	StateAwaitingOptionWrite
)

func (s State) String() string {
	if s == StateAwaitingOptionWrite {
		return "AwaitingOptionWrite"
	}
	return "Streaming"
}

// Session 解释一次动作调用期间插件输出的全部行。
// 它不关心进程本身，只依赖一个用于回写 getOption 结果的 io.Writer，便于单独测试。
type Session struct {
	ctx     context.Context
	sink    port.MessageSink
	options port.OptionStore
	reply   *bufio.Writer

	state    State
	answer   string
	lastLine string
	replies  int
}

// NewSession 创建一个会话，reply 通常是插件进程的标准输入
func NewSession(ctx context.Context, sink port.MessageSink, options port.OptionStore, reply io.Writer) *Session {
	return &Session{
		ctx:     ctx,
		sink:    sink,
		options: options,
		reply:   bufio.NewWriter(reply),
		state:   StateStreaming,
	}
}

// State 返回当前状态
func (s *Session) State() State { return s.state }

// Answer 返回最后一个 answer 指令的值
func (s *Session) Answer() string { return s.answer }

// LastLine 返回最后一行未被识别为指令的非空输出
func (s *Session) LastLine() string { return s.lastLine }

// Replies 返回已回写给插件的 getOption 应答数
func (s *Session) Replies() int { return s.replies }

// HandleLine 处理插件输出的一行。
// 格式错误的指令只影响本行：错误发往错误出口，返回 nil。
// 只有回写 getOption 应答失败时才返回错误，调用方可据此决定是否继续读取。
func (s *Session) HandleLine(line string) error {
	d, err := ParseDirective(line)
	if err != nil {
		s.sink.Error(fmt.Sprintf("忽略插件输出行: %v", err))
		return nil
	}

	switch d.Kind {
	case KindNone:
		if len(d.Raw) > 0 {
			s.lastLine = d.Raw
		}
	case KindShowOutput:
		color := domain.ColorDefault
		if len(d.Args) > 1 {
			color = domain.ParseColor(d.Args[1])
		}
		s.sink.Output(d.Arg(0), color)
	case KindShowError:
		s.sink.Error(d.Text())
	case KindSetOption:
		opt := domain.Option{Name: d.Args[0], Value: d.Args[1], Description: d.Args[2], Type: d.Args[3]}
		if err := s.options.Set(s.ctx, opt); err != nil {
			s.sink.Error(fmt.Sprintf("设置选项 '%s' 失败: %v", opt.Name, err))
		}
	case KindRemoveOption:
		if err := s.options.Delete(s.ctx, d.Args[0]); err != nil {
			s.sink.Error(fmt.Sprintf("删除选项 '%s' 失败: %v", d.Args[0], err))
		}
	case KindGetOption:
		return s.replyOption(d.Args[0])
	case KindAnswer:
		s.answer = d.Args[0]
	}
	return nil
}

// replyOption 把选项当前值作为一行写回插件并立即 flush，之后才允许继续读取
func (s *Session) replyOption(name string) error {
	s.state = StateAwaitingOptionWrite
	defer func() { s.state = StateStreaming }()

	value, err := s.options.Get(s.ctx, name)
	if err != nil && !errors.Is(err, port.ErrOptionNotFound) {
		s.sink.Error(fmt.Sprintf("读取选项 '%s' 失败: %v", name, err))
	}
	if _, err := s.reply.WriteString(value + "\n"); err != nil {
		return fmt.Errorf("回写选项 '%s' 失败: %w", name, err)
	}
	if err := s.reply.Flush(); err != nil {
		return fmt.Errorf("回写选项 '%s' 时 flush 失败: %w", name, err)
	}
	s.replies++
	slog.Debug("已回写 getOption 应答", "option", name)
	return nil
}
