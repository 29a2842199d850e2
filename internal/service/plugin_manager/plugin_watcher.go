// Package plugin_manager file: internal/service/plugin_manager/plugin_watcher.go
package plugin_manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDuration 合并同一文件在短时间内的多次事件
const debounceDuration = 300 * time.Millisecond

// ExecutableWatcher 监视活动插件的可执行文件。
// 文件被删除或改名时把插件从活动表中卸下；被改写时重新解析描述符。
// 目录行不会被修改，下次启动时 BulkLoad 会照常处理。
type ExecutableWatcher struct {
	pm       *PluginManager
	fs       *fsnotify.Watcher
	debounce time.Duration

	mu     sync.Mutex
	dirs   map[string]struct{}
	timers map[string]*time.Timer
}

// StartWatcher 启动文件系统监视器，直到 ctx 结束。
func (pm *PluginManager) StartWatcher(ctx context.Context) (*ExecutableWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建 fsnotify watcher 失败: %w", err)
	}
	w := &ExecutableWatcher{
		pm:       pm,
		fs:       fsw,
		debounce: pm.debounce,
		dirs:     make(map[string]struct{}),
		timers:   make(map[string]*time.Timer),
	}

	pm.mu.Lock()
	pm.watcher = w
	for _, desc := range pm.registry.Snapshot() {
		w.Watch(desc.Path)
	}
	pm.mu.Unlock()

	go w.loop(ctx)
	slog.Info("[PluginWatcher] 插件文件监视器已启动", "dirs", w.watchedDirs())
	return w, nil
}

// Watch 开始监视 path 所在目录，重复调用是安全的
func (w *ExecutableWatcher) Watch(path string) {
	dir := filepath.Dir(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; ok {
		return
	}
	if err := w.fs.Add(dir); err != nil {
		slog.Warn("[PluginWatcher] 添加监视目录失败", "dir", dir, "error", err)
		return
	}
	w.dirs[dir] = struct{}{}
}

func (w *ExecutableWatcher) watchedDirs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

func (w *ExecutableWatcher) loop(ctx context.Context) {
	defer func() {
		w.stopTimers()
		if err := w.fs.Close(); err != nil {
			slog.Warn("[PluginWatcher] 关闭监视器失败", "error", err)
		}
		w.pm.mu.Lock()
		if w.pm.watcher == w {
			w.pm.watcher = nil
		}
		w.pm.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("[PluginWatcher] 插件文件监视器已停止")
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				slog.Warn("[PluginWatcher] 文件监视器事件通道已关闭")
				return
			}
			w.handleFsEvent(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				slog.Warn("[PluginWatcher] 文件监视器错误通道已关闭")
				return
			}
			slog.Error("[PluginWatcher] 文件监视器报告错误", "error", err)
		}
	}
}

// handleFsEvent 只关心活动插件的可执行文件，并对事件做防抖
func (w *ExecutableWatcher) handleFsEvent(ctx context.Context, event fsnotify.Event) {
	cleanPath := filepath.Clean(event.Name)
	if len(w.pm.registry.IDsByPath(cleanPath)) == 0 {
		return
	}
	if !event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) &&
		!event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Chmod) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, exists := w.timers[cleanPath]; exists {
		timer.Stop()
	}
	w.timers[cleanPath] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, cleanPath)
		w.mu.Unlock()
		w.processDebouncedEvent(ctx, cleanPath)
	})
}

// processDebouncedEvent 在防抖后实际处理可执行文件的变更
func (w *ExecutableWatcher) processDebouncedEvent(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		w.pm.Evict(path)
		return
	}
	w.pm.Revalidate(ctx, path)
}

func (w *ExecutableWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
}

// Evict 把可执行文件位于 path 的插件从活动表中卸下，目录行保持不变
func (pm *PluginManager) Evict(path string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, id := range pm.registry.IDsByPath(path) {
		pm.deactivate(id)
		pm.warn(fmt.Sprintf("插件 [%d] 的可执行文件 '%s' 已不存在，已从活动插件中移除", id, path))
	}
}

// Revalidate 重新解析 path 处插件的描述符；不再兼容时将其从活动表中卸下
func (pm *PluginManager) Revalidate(ctx context.Context, path string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	ids := pm.registry.IDsByPath(path)
	if len(ids) == 0 {
		return
	}

	desc, err := pm.resolver.Resolve(ctx, path)
	for _, id := range ids {
		if err != nil {
			pm.deactivate(id)
			pm.warn(fmt.Sprintf("插件 [%d] '%s' 更新后不再兼容，已从活动插件中移除: %v", id, path, err))
			continue
		}
		pm.registry.Put(id, desc)
		slog.Info("[PluginWatcher] 插件描述符已刷新", "plugin_id", id, "name", desc.Name)
	}
}
