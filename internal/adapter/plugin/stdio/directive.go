// Package stdio file: internal/adapter/plugin/stdio/directive.go
package stdio

import (
	"fmt"
	"strings"

	"PlugShell/internal/core/port"
)

// Kind 是一行插件输出被识别出的指令类型
type Kind int

const (
	KindNone Kind = iota // 空行或未识别的关键字
	KindShowOutput
	KindShowError
	KindSetOption
	KindRemoveOption
	KindGetOption
	KindAnswer
)

var keywords = map[string]Kind{
	"showOutput":   KindShowOutput,
	"showError":    KindShowError,
	"setOption":    KindSetOption,
	"removeOption": KindRemoveOption,
	"getOption":    KindGetOption,
	"answer":       KindAnswer,
}

// minArgs 是每种指令要求的最少参数个数
var minArgs = map[Kind]int{
	KindSetOption:    4,
	KindRemoveOption: 1,
	KindGetOption:    1,
	KindAnswer:       1,
}

func (k Kind) String() string {
	for name, kind := range keywords {
		if kind == k {
			return name
		}
	}
	return "none"
}

// Directive 是解析后的一行插件输出
type Directive struct {
	Kind Kind
	Args []string
	Raw  string
}

// ParseDirective 将一行输出解析为指令。
// 只有第一个 token 被当作关键字；未识别的关键字返回 KindNone 而不是错误，
// 以便旧版本宿主忽略新插件发出的指令。参数不足时返回 ErrProtocol。
func ParseDirective(line string) (Directive, error) {
	d := Directive{Kind: KindNone, Raw: line}
	tokens, err := Tokenize(line)
	if err != nil {
		return d, err
	}
	if len(tokens) == 0 {
		return d, nil
	}
	kind, ok := keywords[tokens[0]]
	if !ok {
		return d, nil
	}
	args := tokens[1:]
	if need := minArgs[kind]; len(args) < need {
		return d, fmt.Errorf("%w: %s 需要 %d 个参数，实际 %d 个", port.ErrProtocol, tokens[0], need, len(args))
	}
	d.Kind = kind
	d.Args = args
	return d, nil
}

// Text 返回 showError 指令拼接后的文本
func (d Directive) Text() string {
	return strings.Join(d.Args, " ")
}

// Arg 返回第 i 个参数，越界时返回空串
func (d Directive) Arg(i int) string {
	if i < len(d.Args) {
		return d.Args[i]
	}
	return ""
}
