// Package console file: internal/console/sink.go
package console

import (
	"PlugShell/internal/core/domain"
	"PlugShell/internal/core/port"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// WarningPrefix 标记经由错误通道发出的非致命警告
const WarningPrefix = "警告:"

// ansiColors 把颜色名称映射到 ANSI 基础色号
var ansiColors = map[domain.Color]string{
	domain.ColorRed:     "1",
	domain.ColorGreen:   "2",
	domain.ColorYellow:  "3",
	domain.ColorBlue:    "4",
	domain.ColorMagenta: "5",
	domain.ColorCyan:    "6",
	domain.ColorWhite:   "7",
}

// Sink 是 port.MessageSink 的终端实现。
// 输出写到 out，错误与警告写到 errOut；非终端写入时自动退化为无颜色文本。
type Sink struct {
	mu       sync.Mutex
	out      io.Writer
	errOut   io.Writer
	renderer *lipgloss.Renderer

	errStyle  lipgloss.Style
	warnStyle lipgloss.Style
	okStyle   lipgloss.Style
	dimStyle  lipgloss.Style
}

var _ port.MessageSink = (*Sink)(nil)

// NewSink 创建终端输出
func NewSink(out, errOut io.Writer) *Sink {
	r := lipgloss.NewRenderer(out)
	return &Sink{
		out:       out,
		errOut:    errOut,
		renderer:  r,
		errStyle:  r.NewStyle().Foreground(lipgloss.Color(ansiColors[domain.ColorRed])).Bold(true),
		warnStyle: r.NewStyle().Foreground(lipgloss.Color(ansiColors[domain.ColorYellow])),
		okStyle:   r.NewStyle().Foreground(lipgloss.Color(ansiColors[domain.ColorGreen])),
		dimStyle:  r.NewStyle().Faint(true),
	}
}

// Output 按颜色提示输出一行
func (s *Sink) Output(text string, color domain.Color) {
	style := s.renderer.NewStyle()
	if color != domain.ColorDefault {
		code, ok := ansiColors[color]
		if !ok {
			code = string(color) // #rrggbb 或 0-255
		}
		style = style.Foreground(lipgloss.Color(code))
	}
	s.writeLine(s.out, style.Render(text))
}

// Error 输出一条错误；以 WarningPrefix 开头的消息按警告样式显示
func (s *Sink) Error(text string) {
	style := s.errStyle
	if strings.HasPrefix(text, WarningPrefix) {
		style = s.warnStyle
	}
	s.writeLine(s.errOut, style.Render(text))
}

// Success 输出一条成功提示
func (s *Sink) Success(format string, args ...any) {
	s.writeLine(s.out, s.okStyle.Render(fmt.Sprintf(format, args...)))
}

// Prompt 输出提示符，不换行
func (s *Sink) Prompt(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.out, text)
}

// Dim 返回弱化样式的文本，用于表格中的次要信息
func (s *Sink) Dim(text string) string {
	return s.dimStyle.Render(text)
}

func (s *Sink) writeLine(w io.Writer, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(w, text+"\n")
}
