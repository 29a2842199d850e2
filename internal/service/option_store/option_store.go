// Package option_store internal/service/option_store/option_store.go
package option_store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"PlugShell/internal/core/domain"
	"PlugShell/internal/core/port"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// OptionStoreImpl 是 port.OptionStore 基于 SQLite `options` 表的实现。
// 插件在每次调用中可能反复执行 getOption，读路径走带过期时间的 LRU 缓存。
type OptionStoreImpl struct {
	db    *sql.DB
	cache *lru.LRU[string, domain.Option]
}

// 静态断言，确保 OptionStoreImpl 实现了 port.OptionStore 接口。
var _ port.OptionStore = (*OptionStoreImpl)(nil)

// NewOptionStoreImpl 创建一个新的 OptionStoreImpl 实例。
// maxCacheEntries: 缓存中允许的最大条目数。
// defaultCacheTTL: 缓存条目的默认过期时间。
func NewOptionStoreImpl(db *sql.DB, maxCacheEntries int, defaultCacheTTL time.Duration) (*OptionStoreImpl, error) {
	if db == nil {
		return nil, fmt.Errorf("OptionStoreImpl 初始化失败: db 实例不能为 nil")
	}
	if maxCacheEntries <= 0 {
		maxCacheEntries = 256
	}
	if defaultCacheTTL <= 0 {
		defaultCacheTTL = 5 * time.Minute
	}

	return &OptionStoreImpl{
		db:    db,
		cache: lru.NewLRU[string, domain.Option](maxCacheEntries, nil, defaultCacheTTL),
	}, nil
}

// Get 返回选项值；选项不存在时返回 port.ErrOptionNotFound
func (s *OptionStoreImpl) Get(ctx context.Context, name string) (string, error) {
	opt, err := s.Lookup(ctx, name)
	if err != nil {
		return "", err
	}
	return opt.Value, nil
}

// Lookup 返回完整的选项记录
func (s *OptionStoreImpl) Lookup(ctx context.Context, name string) (domain.Option, error) {
	if cached, ok := s.cache.Get(name); ok {
		return cached, nil
	}

	opt := domain.Option{Name: name}
	err := s.db.QueryRowContext(ctx,
		"SELECT value, description, type FROM options WHERE name = ?", name).
		Scan(&opt.Value, &opt.Description, &opt.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Option{}, fmt.Errorf("%w: '%s'", port.ErrOptionNotFound, name)
	}
	if err != nil {
		return domain.Option{}, fmt.Errorf("读取选项 '%s' 失败: %w", name, err)
	}

	s.cache.Add(name, opt)
	return opt, nil
}

// Set 插入或覆盖选项
func (s *OptionStoreImpl) Set(ctx context.Context, opt domain.Option) error {
	if opt.Name == "" {
		return errors.New("选项名称不能为空")
	}
	if opt.Type == "" {
		opt.Type = "string"
	}

	query := `
        INSERT INTO options (name, value, description, type) VALUES (?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            value = excluded.value,
            description = excluded.description,
            type = excluded.type;
    `
	if _, err := s.db.ExecContext(ctx, query, opt.Name, opt.Value, opt.Description, opt.Type); err != nil {
		return fmt.Errorf("保存选项 '%s' 失败: %w", opt.Name, err)
	}

	s.cache.Remove(opt.Name)
	slog.Debug("[OptionStore] 选项已更新", "name", opt.Name)
	return nil
}

// Delete 删除选项；选项不存在时返回 port.ErrOptionNotFound
func (s *OptionStoreImpl) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM options WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("删除选项 '%s' 失败: %w", name, err)
	}
	s.cache.Remove(name)

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("删除选项 '%s' 后读取受影响行数失败: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: '%s'", port.ErrOptionNotFound, name)
	}
	slog.Debug("[OptionStore] 选项已删除", "name", name)
	return nil
}

// List 按名称排序返回全部选项
func (s *OptionStoreImpl) List(ctx context.Context) ([]domain.Option, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, value, description, type FROM options ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("列出选项失败: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("[OptionStore] 关闭选项结果集失败", "error", err)
		}
	}()

	var opts []domain.Option
	for rows.Next() {
		var opt domain.Option
		if err := rows.Scan(&opt.Name, &opt.Value, &opt.Description, &opt.Type); err != nil {
			return nil, fmt.Errorf("扫描选项记录失败: %w", err)
		}
		opts = append(opts, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历选项记录失败: %w", err)
	}
	return opts, nil
}

