// Package port file: internal/core/port/plugin.go
package port

import (
	"context"
	"errors"

	"PlugShell/internal/core/domain"
)

// Standard errors
var (
	ErrInvalidInvocation = errors.New("无效的插件调用")
	ErrSpawn             = errors.New("无法启动插件进程")
	ErrProtocol          = errors.New("插件协议错误")
	ErrIncompatible      = errors.New("插件不兼容")
	ErrActionUnsupported = errors.New("插件不支持该动作")
	ErrActionFailed      = errors.New("插件动作执行失败")
	ErrCatalog           = errors.New("插件目录存储错误")
	ErrPluginNotFound    = errors.New("指定的插件未找到")
	ErrDuplicatePlugin   = errors.New("该路径的插件已存在")
	ErrRemovalBlocked    = errors.New("插件无法移除，仍保留在目录中")
	ErrOptionNotFound    = errors.New("指定的选项未找到")
)

// PluginCatalog 是持久化插件目录的访问接口，只有生命周期管理器会写入它
type PluginCatalog interface {
	// Insert 新增一行并返回分配的 id
	Insert(ctx context.Context, location string, enabled bool) (int64, error)
	// Get 按 id 查询，不存在时返回 ErrPluginNotFound
	Get(ctx context.Context, id int64) (*domain.CatalogEntry, error)
	// FindByLocation 按路径查询，不存在时返回 ErrPluginNotFound
	FindByLocation(ctx context.Context, location string) (*domain.CatalogEntry, error)
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	Delete(ctx context.Context, id int64) error
	// List 按 id 升序返回所有条目
	List(ctx context.Context) ([]domain.CatalogEntry, error)
}

// ActionExecutor 为一次动作启动一个插件进程并归约其结果
type ActionExecutor interface {
	Execute(ctx context.Context, path string, args ...string) (domain.ActionResult, error)
}
