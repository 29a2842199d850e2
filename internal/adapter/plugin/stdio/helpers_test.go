// file: internal/adapter/plugin/stdio/helpers_test.go
package stdio

import (
	"PlugShell/internal/core/domain"
	"PlugShell/internal/core/port"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
//  共享测试辅助工具 (Shared Test Helpers & Mocks)
// ============================================================================

type outputLine struct {
	Text  string
	Color domain.Color
}

// recordingSink 记录所有发往用户的消息
type recordingSink struct {
	mu      sync.Mutex
	outputs []outputLine
	errors  []string
}

func (s *recordingSink) Output(text string, color domain.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = append(s.outputs, outputLine{Text: text, Color: color})
}

func (s *recordingSink) Error(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, text)
}

// memOptions 是 port.OptionStore 的内存实现
type memOptions struct {
	values    map[string]domain.Option
	deleteErr error
}

func newMemOptions(kv ...string) *memOptions {
	m := &memOptions{values: make(map[string]domain.Option)}
	for i := 0; i+1 < len(kv); i += 2 {
		m.values[kv[i]] = domain.Option{Name: kv[i], Value: kv[i+1]}
	}
	return m
}

func (m *memOptions) Get(_ context.Context, name string) (string, error) {
	opt, ok := m.values[name]
	if !ok {
		return "", port.ErrOptionNotFound
	}
	return opt.Value, nil
}

func (m *memOptions) Set(_ context.Context, opt domain.Option) error {
	m.values[opt.Name] = opt
	return nil
}

func (m *memOptions) Delete(_ context.Context, name string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.values[name]; !ok {
		return port.ErrOptionNotFound
	}
	delete(m.values, name)
	return nil
}

func (m *memOptions) List(_ context.Context) ([]domain.Option, error) {
	out := make([]domain.Option, 0, len(m.values))
	for _, v := range m.values {
		out = append(out, v)
	}
	return out, nil
}

// failingWriter 模拟插件已关闭标准输入
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

// writeScript 在临时目录中写入一个可执行的 sh 脚本作为测试插件
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("脚本插件依赖 /bin/sh")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}
