// Package plugin_manager file: internal/service/plugin_manager/plugin_lifecycle.go
package plugin_manager

import (
	"PlugShell/internal/core/domain"
	"PlugShell/internal/core/port"
	"PlugShell/internal/observe"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

// 生命周期操作名称，同时用作指标标签
const (
	opAdd      = "add"
	opRemove   = "remove"
	opEnable   = "enable"
	opDisable  = "disable"
	opBulkLoad = "bulk_load"
	opRun      = "run"
	opFetch    = "fetch"
)

// rollbackTimeout 限制补偿性目录写入的耗时
const rollbackTimeout = 5 * time.Second

// LoadReport 汇总一次 BulkLoad 的结果
type LoadReport struct {
	Loaded     []int64 // 已注册到活动表
	Disabled   []int64 // 不兼容，目录中已改为禁用
	InitFailed []int64 // init 失败，仍为启用但未注册
	Errored    []int64 // 目录读写失败
}

// Add 将 path 处的插件加入目录并启用: absent -> installed-enabled。
// 任一步骤失败都会删除本次插入的目录行。
func (pm *PluginManager) Add(ctx context.Context, path string) (id int64, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	defer pm.finish(opAdd, &err)

	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("无法解析插件路径 '%s': %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return 0, fmt.Errorf("插件文件 '%s' 不可用: %w", abs, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("插件路径 '%s' 不是普通文件", abs)
	}

	if _, err := pm.catalog.FindByLocation(ctx, abs); err == nil {
		return 0, fmt.Errorf("%w: %s", port.ErrDuplicatePlugin, abs)
	} else if !errors.Is(err, port.ErrPluginNotFound) {
		return 0, err
	}

	inserted, err := pm.catalog.Insert(ctx, abs, true)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		// 也覆盖 panic 的情况，此时 err 由 finish 填充
		if !committed {
			err = pm.rollbackInsert(ctx, inserted, err)
			id = 0
		}
	}()
	logger := slog.With("plugin_id", inserted, "path", abs)

	desc, err := pm.resolver.Resolve(ctx, abs)
	if err != nil {
		return 0, err
	}
	for _, action := range []string{domain.ActionInstall, domain.ActionEnable} {
		if !desc.Supports(action) {
			continue
		}
		if _, err := pm.runAction(ctx, desc, action); err != nil {
			return 0, err
		}
	}

	pm.activate(inserted, desc)
	committed = true
	logger.Info("[PluginManager] 插件已添加并启用", "name", desc.Name)
	return inserted, nil
}

// rollbackInsert 删除 Add 过程中插入的目录行，并把删除失败与 cause 合并返回
// 调用方的 ctx 被取消本身就可能是失败原因，回滚改用不随之取消的上下文。
func (pm *PluginManager) rollbackInsert(ctx context.Context, id int64, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := pm.catalog.Delete(ctx, id); err != nil {
		slog.Error("[PluginManager] 回滚插件目录行失败", "plugin_id", id, "error", err)
		return errors.Join(cause, fmt.Errorf("回滚插件 %d 的目录记录失败: %w", id, err))
	}
	slog.Debug("[PluginManager] 已回滚插件目录行", "plugin_id", id)
	return cause
}

// Remove 卸载插件: installed-(any) -> absent。
// disable 或 uninstall 失败时中止并保留目录行，返回 port.ErrRemovalBlocked。
func (pm *PluginManager) Remove(ctx context.Context, id int64) (err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	defer pm.finish(opRemove, &err)

	entry, err := pm.catalog.Get(ctx, id)
	if err != nil {
		return err
	}

	desc, err := pm.resolver.Resolve(ctx, entry.Location)
	if err != nil {
		return fmt.Errorf("%w: 插件 [%d] %w", port.ErrRemovalBlocked, id, err)
	}
	if entry.Enabled && desc.Supports(domain.ActionDisable) {
		if _, err := pm.runAction(ctx, desc, domain.ActionDisable); err != nil {
			return fmt.Errorf("%w: 插件 [%d] %w", port.ErrRemovalBlocked, id, err)
		}
	}
	if desc.Supports(domain.ActionUninstall) {
		if _, err := pm.runAction(ctx, desc, domain.ActionUninstall); err != nil {
			return fmt.Errorf("%w: 插件 [%d] %w", port.ErrRemovalBlocked, id, err)
		}
	}

	if err := pm.catalog.Delete(ctx, id); err != nil {
		return err
	}
	pm.deactivate(id)
	slog.Info("[PluginManager] 插件已移除", "plugin_id", id, "path", entry.Location)
	return nil
}

// Enable 启用插件: installed-disabled -> installed-enabled。
// 重新解析描述符；不兼容的插件不能启用。
func (pm *PluginManager) Enable(ctx context.Context, id int64) (err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	defer pm.finish(opEnable, &err)

	entry, err := pm.catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, active := pm.registry.Get(id); entry.Enabled && active {
		slog.Debug("[PluginManager] 插件已处于启用状态", "plugin_id", id)
		return nil
	}

	desc, err := pm.resolver.Resolve(ctx, entry.Location)
	if err != nil {
		return err
	}
	if desc.Supports(domain.ActionEnable) {
		if _, err := pm.runAction(ctx, desc, domain.ActionEnable); err != nil {
			return err
		}
	}
	if err := pm.catalog.SetEnabled(ctx, id, true); err != nil {
		return err
	}
	pm.activate(id, desc)
	slog.Info("[PluginManager] 插件已启用", "plugin_id", id, "name", desc.Name)
	return nil
}

// Disable 禁用插件: installed-enabled -> installed-disabled。
// 描述符不兼容时不执行任何动作，直接禁用。
func (pm *PluginManager) Disable(ctx context.Context, id int64) (err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	defer pm.finish(opDisable, &err)

	entry, err := pm.catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, active := pm.registry.Get(id); !entry.Enabled && !active {
		slog.Debug("[PluginManager] 插件已处于禁用状态", "plugin_id", id)
		return nil
	}

	desc, resolveErr := pm.resolver.Resolve(ctx, entry.Location)
	switch {
	case resolveErr != nil:
		slog.Warn("[PluginManager] 插件不兼容，跳过 disable 动作", "plugin_id", id, "error", resolveErr)
	case desc.Supports(domain.ActionDisable):
		if _, err := pm.runAction(ctx, desc, domain.ActionDisable); err != nil {
			return err
		}
	}

	if err := pm.catalog.SetEnabled(ctx, id, false); err != nil {
		return err
	}
	pm.deactivate(id)
	slog.Info("[PluginManager] 插件已禁用", "plugin_id", id)
	return nil
}

// BulkLoad 在 shell 启动时加载所有启用的插件。单个插件的问题只产生警告，不会中止整体加载。
// init 失败的插件保持 enabled = true 但不进入活动表。
func (pm *PluginManager) BulkLoad(ctx context.Context) (report LoadReport, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	defer pm.finish(opBulkLoad, &err)

	entries, err := pm.catalog.List(ctx)
	if err != nil {
		return report, err
	}

	for _, entry := range entries {
		if !entry.Enabled {
			continue
		}
		logger := slog.With("plugin_id", entry.ID, "path", entry.Location)

		desc, resolveErr := pm.resolver.Resolve(ctx, entry.Location)
		if resolveErr != nil {
			pm.warn(fmt.Sprintf("插件 [%d] '%s' 不兼容，已禁用: %v", entry.ID, entry.Location, resolveErr))
			if err := pm.catalog.SetEnabled(ctx, entry.ID, false); err != nil {
				pm.warn(fmt.Sprintf("禁用插件 [%d] 失败: %v", entry.ID, err))
				report.Errored = append(report.Errored, entry.ID)
				continue
			}
			report.Disabled = append(report.Disabled, entry.ID)
			continue
		}

		if desc.Supports(domain.ActionInit) {
			if _, err := pm.runAction(ctx, desc, domain.ActionInit); err != nil {
				pm.warn(fmt.Sprintf("插件 [%d] '%s' 初始化失败，本次未加载: %v", entry.ID, entry.Location, err))
				report.InitFailed = append(report.InitFailed, entry.ID)
				continue
			}
		}

		pm.activate(entry.ID, desc)
		report.Loaded = append(report.Loaded, entry.ID)
		logger.Debug("[PluginManager] 插件已加载", "name", desc.Name)
	}

	slog.Info("[PluginManager] 插件加载完成",
		"loaded", len(report.Loaded), "disabled", len(report.Disabled), "init_failed", len(report.InitFailed),
		"active", pm.registry.Len())
	slog.Debug("[PluginManager] 活动插件", "ids", pm.registry.IDs())
	return report, nil
}

// Run 对活动插件执行一个其声明过的动作，返回动作结果供调用方展示应答
func (pm *PluginManager) Run(ctx context.Context, id int64, action string, args ...string) (res domain.ActionResult, err error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	defer pm.finish(opRun, &err)

	desc, ok := pm.registry.Get(id)
	if !ok {
		if _, err := pm.catalog.Get(ctx, id); err != nil {
			return res, err
		}
		return res, fmt.Errorf("插件 [%d] 未启用", id)
	}
	if !desc.Supports(action) {
		return res, fmt.Errorf("%w: 插件 '%s' 未声明动作 '%s'", port.ErrActionUnsupported, desc.Name, action)
	}
	return pm.runAction(ctx, desc, action, args...)
}

// List 返回插件状态。all 为 false 时仅返回活动插件。
func (pm *PluginManager) List(ctx context.Context, all bool) ([]domain.PluginStatus, error) {
	entries, err := pm.catalog.List(ctx)
	if err != nil {
		pm.sink.Error(fmt.Sprintf("读取插件目录失败: %v", err))
		return nil, err
	}

	statuses := make([]domain.PluginStatus, 0, len(entries))
	for _, entry := range entries {
		desc, active := pm.registry.Get(entry.ID)
		if !all && !active {
			continue
		}
		statuses = append(statuses, domain.PluginStatus{Entry: entry, Active: active, Descriptor: desc})
	}
	return statuses, nil
}

// Show 返回单个插件的状态。非活动插件会临时解析一次描述符用于展示，不改变任何状态。
func (pm *PluginManager) Show(ctx context.Context, id int64) (*domain.PluginStatus, error) {
	entry, err := pm.catalog.Get(ctx, id)
	if err != nil {
		pm.sink.Error(fmt.Sprintf("查看插件 [%d] 失败: %v", id, err))
		return nil, err
	}

	status := &domain.PluginStatus{Entry: *entry}
	if desc, ok := pm.registry.Get(id); ok {
		status.Active = true
		status.Descriptor = desc
		return status, nil
	}
	if desc, err := pm.resolver.Resolve(ctx, entry.Location); err == nil {
		status.Descriptor = desc
	} else {
		slog.Debug("[PluginManager] 非活动插件描述符不可用", "plugin_id", id, "error", err)
	}
	return status, nil
}

// runAction 执行一个动作并把非成功的结果转换为错误
func (pm *PluginManager) runAction(ctx context.Context, desc *domain.Descriptor, action string, args ...string) (domain.ActionResult, error) {
	res, err := pm.executor.Execute(ctx, desc.Path, append([]string{action}, args...)...)
	if err != nil {
		return res, fmt.Errorf("%w: 插件 '%s' 的动作 '%s': %w", port.ErrActionFailed, desc.Name, action, err)
	}
	switch res.Outcome {
	case domain.OutcomeSuccess:
		return res, nil
	case domain.OutcomeUnsupported:
		return res, fmt.Errorf("%w: 插件 '%s' 不支持动作 '%s'", port.ErrActionUnsupported, desc.Name, action)
	default:
		return res, fmt.Errorf("%w: 插件 '%s' 的动作 '%s' 退出码为 %d", port.ErrActionFailed, desc.Name, action, res.ExitCode)
	}
}

// activate 与 deactivate 是活动表的唯一写入口，调用前必须持有 mu
func (pm *PluginManager) activate(id int64, desc *domain.Descriptor) {
	pm.registry.Put(id, desc)
	if pm.watcher != nil {
		pm.watcher.Watch(desc.Path)
	}
}

func (pm *PluginManager) deactivate(id int64) {
	pm.registry.Delete(id)
}

func (pm *PluginManager) warn(msg string) {
	slog.Warn("[PluginManager] " + msg)
	pm.sink.Error("警告: " + msg)
}

// finish 必须以 defer 方式调用: 把 panic 转为错误，向用户报告失败并记录指标
func (pm *PluginManager) finish(op string, errp *error) {
	if r := recover(); r != nil {
		slog.Error("[PluginManager] 生命周期操作发生 panic", "operation", op, "panic", r, "stack", string(debug.Stack()))
		*errp = fmt.Errorf("插件操作 '%s' 发生内部错误: %v", op, r)
	}
	observe.ObserveLifecycle(op, *errp)
	if *errp != nil {
		slog.Warn("[PluginManager] 生命周期操作失败", "operation", op, "error", *errp)
		pm.sink.Error(fmt.Sprintf("插件操作 '%s' 失败: %v", op, *errp))
	}
}
