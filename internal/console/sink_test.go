// file: internal/console/sink_test.go
package console

import (
	"PlugShell/internal/core/domain"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// 写入非终端时不应出现 ANSI 转义序列
func TestSink_PlainWhenNotATerminal(t *testing.T) {
	var out, errOut bytes.Buffer
	s := NewSink(&out, &errOut)

	s.Output("hello", domain.ColorGreen)
	s.Output("plain", domain.ColorDefault)
	s.Output("hex", domain.Color("#ff8800"))
	s.Error("boom")
	s.Error(WarningPrefix + " careful")
	s.Success("added %d", 3)

	assert.Equal(t, "hello\nplain\nhex\nadded 3\n", out.String())
	assert.Equal(t, "boom\n警告: careful\n", errOut.String())
	assert.NotContains(t, out.String(), "\x1b[")
	assert.Equal(t, "x", s.Dim("x"))
}
