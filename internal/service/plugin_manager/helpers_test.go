// file: internal/service/plugin_manager/helpers_test.go
package plugin_manager

import (
	"PlugShell/internal/core/domain"
	"PlugShell/internal/core/port"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
//  共享测试辅助工具 (Shared Test Helpers & Mocks)
// ============================================================================

// recordingSink 记录所有发往用户的消息
type recordingSink struct {
	mu      sync.Mutex
	outputs []string
	errors  []string
}

func (s *recordingSink) Output(text string, _ domain.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = append(s.outputs, text)
}

func (s *recordingSink) Error(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, text)
}

func (s *recordingSink) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.errors...)
}

// fakePlugin 描述假执行器中一个插件对各动作的反应
type fakePlugin struct {
	info     string         // info 动作的 answer
	lastLine bool           // 为 true 时 info 以普通输出行返回而非 answer 指令
	exits    map[string]int // 动作 -> 退出码，缺省为 0
	answers  map[string]string
	spawnErr bool
	panicOn  string
}

type fakeCall struct {
	Path string
	Args []string
}

// fakeExecutor 是 port.ActionExecutor 的内存实现，不启动任何进程
type fakeExecutor struct {
	mu      sync.Mutex
	plugins map[string]*fakePlugin
	calls   []fakeCall
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{plugins: make(map[string]*fakePlugin)}
}

func (f *fakeExecutor) set(path string, p *fakePlugin) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plugins[path] = p
}

func (f *fakeExecutor) Execute(_ context.Context, path string, args ...string) (domain.ActionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Path: path, Args: append([]string(nil), args...)})
	p, ok := f.plugins[path]
	f.mu.Unlock()

	if !ok || p.spawnErr {
		return domain.ActionResult{Outcome: domain.OutcomeFailed, ExitCode: -1},
			fmt.Errorf("%w '%s': no such file or directory", port.ErrSpawn, path)
	}
	action := args[0]
	if p.panicOn == action {
		panic("plugin exploded")
	}
	res := domain.ResultFromExit(p.exits[action])
	if action == domain.ActionInfo {
		if p.lastLine {
			res.LastLine = p.info
		} else {
			res.Answer = p.info
		}
		return res, nil
	}
	res.Answer = p.answers[action]
	return res, nil
}

// actions 返回对 path 依次执行过的动作名称
func (f *fakeExecutor) actions(path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Path == path {
			out = append(out, c.Args[0])
		}
	}
	return out
}

func (f *fakeExecutor) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// memCatalog 是 port.PluginCatalog 的内存实现，可注入存储错误
type memCatalog struct {
	mu        sync.Mutex
	rows      map[int64]domain.CatalogEntry
	nextID    int64
	deleteErr error
	setErr    error
	listErr   error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{rows: make(map[int64]domain.CatalogEntry)}
}

func (c *memCatalog) Insert(_ context.Context, location string, enabled bool) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rows {
		if r.Location == location {
			return 0, port.ErrDuplicatePlugin
		}
	}
	c.nextID++
	c.rows[c.nextID] = domain.CatalogEntry{ID: c.nextID, Location: location, Enabled: enabled}
	return c.nextID, nil
}

func (c *memCatalog) Get(_ context.Context, id int64) (*domain.CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: id=%d", port.ErrPluginNotFound, id)
	}
	return &r, nil
}

func (c *memCatalog) FindByLocation(_ context.Context, location string) (*domain.CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.rows {
		if r.Location == location {
			return &r, nil
		}
	}
	return nil, port.ErrPluginNotFound
}

func (c *memCatalog) SetEnabled(_ context.Context, id int64, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return fmt.Errorf("%w: %v", port.ErrCatalog, c.setErr)
	}
	r, ok := c.rows[id]
	if !ok {
		return port.ErrPluginNotFound
	}
	r.Enabled = enabled
	c.rows[id] = r
	return nil
}

func (c *memCatalog) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deleteErr != nil {
		return fmt.Errorf("%w: %v", port.ErrCatalog, c.deleteErr)
	}
	if _, ok := c.rows[id]; !ok {
		return port.ErrPluginNotFound
	}
	delete(c.rows, id)
	return nil
}

func (c *memCatalog) List(_ context.Context) ([]domain.CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrCatalog, c.listErr)
	}
	out := make([]domain.CatalogEntry, 0, len(c.rows))
	for _, r := range c.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCatalog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// seed 直接写入一行，绕过生命周期管理器
func (c *memCatalog) seed(location string, enabled bool) int64 {
	id, _ := c.Insert(context.Background(), location, enabled)
	return id
}

type testEnv struct {
	pm      *PluginManager
	exec    *fakeExecutor
	catalog *memCatalog
	sink    *recordingSink
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		exec:    newFakeExecutor(),
		catalog: newMemCatalog(),
		sink:    &recordingSink{},
		dir:     t.TempDir(),
	}
	pm, err := NewPluginManager(env.catalog, env.exec, env.sink)
	require.NoError(t, err)
	env.pm = pm
	return env
}

// plugin 在临时目录中创建一个占位可执行文件并在假执行器中注册其行为
func (env *testEnv) plugin(t *testing.T, name string, p *fakePlugin) string {
	t.Helper()
	path := filepath.Join(env.dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	env.exec.set(path, p)
	return path
}

// writeScript 在临时目录中写入一个可执行的 sh 脚本作为测试插件
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("脚本插件依赖 /bin/sh")
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+strings.TrimLeft(body, "\n")), 0o755))
	return path
}

func containsAny(msgs []string, sub string) bool {
	for _, m := range msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}
