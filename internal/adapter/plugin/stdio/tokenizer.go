// Package stdio file: internal/adapter/plugin/stdio/tokenizer.go
package stdio

import (
	"fmt"
	"strings"
	"unicode"

	"PlugShell/internal/core/port"
)

// Tokenize 按空白切分一行插件输出，双引号包裹的子串视为一个 token。
// 引号内的 \" 表示字面量引号；引号未闭合时返回 ErrProtocol。
func Tokenize(line string) ([]string, error) {
	var (
		tokens  []string
		cur     strings.Builder
		inQuote bool
		hasTok  bool // 区分空字符串 token ("") 与无 token
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inQuote && r == '\\' && i+1 < len(runes) && runes[i+1] == '"':
			cur.WriteRune('"')
			i++
		case r == '"':
			inQuote = !inQuote
			hasTok = true
		case !inQuote && unicode.IsSpace(r):
			if hasTok {
				tokens = append(tokens, cur.String())
				cur.Reset()
				hasTok = false
			}
		default:
			cur.WriteRune(r)
			hasTok = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: 引号未闭合: %q", port.ErrProtocol, line)
	}
	if hasTok {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
