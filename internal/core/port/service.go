// Package port file: internal/core/port/service.go
package port

import (
	"context"

	"PlugShell/internal/core/domain"
)

// OptionStore 是插件可以读写的键值选项存储
type OptionStore interface {
	// Get 返回选项当前值，不存在时返回 ErrOptionNotFound
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, opt domain.Option) error
	// Delete 删除选项，不存在时返回 ErrOptionNotFound
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]domain.Option, error)
}

// MessageSink 是面向用户的消息出口
type MessageSink interface {
	Output(text string, color domain.Color)
	Error(text string)
}

// PluginLifecycle 是 shell 与管理接口驱动插件生命周期所用的操作集合。
// 实现会自行把失败报告给 MessageSink，调用方只需处理返回的错误。
type PluginLifecycle interface {
	Add(ctx context.Context, path string) (int64, error)
	// AddFrom 接受本地路径或 http(s):// / file:// 来源，checksum 可为空
	AddFrom(ctx context.Context, source, checksum string) (int64, error)
	Remove(ctx context.Context, id int64) error
	Enable(ctx context.Context, id int64) error
	Disable(ctx context.Context, id int64) error
	List(ctx context.Context, all bool) ([]domain.PluginStatus, error)
	Show(ctx context.Context, id int64) (*domain.PluginStatus, error)
	Run(ctx context.Context, id int64, action string, args ...string) (domain.ActionResult, error)
}
