// Package plugin_manager file: internal/service/plugin_manager/plugin_manager.go
package plugin_manager

import (
	"PlugShell/internal/core/port"
	"PlugShell/internal/downloader"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// PluginManager 负责插件目录、描述符解析和插件生命周期。
// 它的具体方法实现被拆分到 plugin_descriptor.go, plugin_lifecycle.go, plugin_installer.go 和 plugin_watcher.go 中。
//
// 生命周期操作都是多步且非原子的，所有操作由 mu 串行化，
// 同一把锁同时保护目录与活动注册表的一致性。
type PluginManager struct {
	catalog     port.PluginCatalog
	executor    port.ActionExecutor
	resolver    *Resolver
	registry    *ActiveRegistry
	sink        port.MessageSink
	installDir  string
	downloaders []downloader.Downloader
	watcher     *ExecutableWatcher
	debounce    time.Duration

	mu sync.Mutex
}

var _ port.PluginLifecycle = (*PluginManager)(nil)

// Option 用于定制 PluginManager
type Option func(*PluginManager)

// WithInstallDir 设置远程插件的下载目录
func WithInstallDir(dir string) Option {
	return func(pm *PluginManager) { pm.installDir = dir }
}

// WithDownloaders 替换默认的下载器列表
func WithDownloaders(ds ...downloader.Downloader) Option {
	return func(pm *PluginManager) { pm.downloaders = ds }
}

// WithWatchDebounce 设置可执行文件监视器的防抖间隔
func WithWatchDebounce(d time.Duration) Option {
	return func(pm *PluginManager) { pm.debounce = d }
}

// NewPluginManager 创建一个新的插件管理器实例
func NewPluginManager(catalog port.PluginCatalog, executor port.ActionExecutor, sink port.MessageSink, opts ...Option) (*PluginManager, error) {
	if catalog == nil || executor == nil || sink == nil {
		return nil, errors.New("PluginManager 需要有效的插件目录、执行器与消息输出")
	}

	pm := &PluginManager{
		catalog:     catalog,
		executor:    executor,
		resolver:    NewResolver(executor),
		registry:    NewActiveRegistry(),
		sink:        sink,
		downloaders: downloader.Default(nil),
		debounce:    debounceDuration,
	}
	for _, opt := range opts {
		opt(pm)
	}

	if pm.installDir != "" {
		if err := os.MkdirAll(pm.installDir, 0o755); err != nil {
			return nil, fmt.Errorf("创建插件安装目录 '%s' 失败: %w", pm.installDir, err)
		}
	}
	return pm, nil
}

