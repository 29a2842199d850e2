// Package sqlite file: internal/adapter/catalog/sqlite/catalog.go
package sqlite

import (
	"PlugShell/internal/core/domain"
	"PlugShell/internal/core/port"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Catalog 是 port.PluginCatalog 基于 SQLite `plugins` 表的实现。
// 表结构由 service.InitShellTables 负责创建。
type Catalog struct {
	db *sql.DB
}

var _ port.PluginCatalog = (*Catalog)(nil)

// NewCatalog 创建插件目录存储
func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Insert(ctx context.Context, location string, enabled bool) (int64, error) {
	res, err := c.db.ExecContext(ctx, `INSERT INTO plugins (location, enabled) VALUES (?, ?)`, location, enabled)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", port.ErrDuplicatePlugin, location)
		}
		return 0, fmt.Errorf("%w: 插入插件记录 '%s' 失败: %v", port.ErrCatalog, location, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: 读取新插件 ID 失败: %v", port.ErrCatalog, err)
	}
	return id, nil
}

func (c *Catalog) Get(ctx context.Context, id int64) (*domain.CatalogEntry, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, location, enabled FROM plugins WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%d", port.ErrPluginNotFound, id)
		}
		return nil, fmt.Errorf("%w: 查询插件 %d 失败: %v", port.ErrCatalog, id, err)
	}
	return entry, nil
}

func (c *Catalog) FindByLocation(ctx context.Context, location string) (*domain.CatalogEntry, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, location, enabled FROM plugins WHERE location = ?`, location)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", port.ErrPluginNotFound, location)
		}
		return nil, fmt.Errorf("%w: 按位置查询插件失败: %v", port.ErrCatalog, err)
	}
	return entry, nil
}

func (c *Catalog) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	res, err := c.db.ExecContext(ctx, `UPDATE plugins SET enabled = ? WHERE id = ?`, enabled, id)
	if err != nil {
		return fmt.Errorf("%w: 更新插件 %d 状态失败: %v", port.ErrCatalog, id, err)
	}
	return expectOneRow(res, id)
}

func (c *Catalog) Delete(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM plugins WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: 删除插件 %d 失败: %v", port.ErrCatalog, id, err)
	}
	return expectOneRow(res, id)
}

// List 按 ID 升序返回全部插件记录
func (c *Catalog) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, location, enabled FROM plugins ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: 列出插件失败: %v", port.ErrCatalog, err)
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: 读取插件记录失败: %v", port.ErrCatalog, err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: 遍历插件记录失败: %v", port.ErrCatalog, err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (*domain.CatalogEntry, error) {
	var entry domain.CatalogEntry
	if err := s.Scan(&entry.ID, &entry.Location, &entry.Enabled); err != nil {
		return nil, err
	}
	return &entry, nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: 读取受影响行数失败: %v", port.ErrCatalog, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id=%d", port.ErrPluginNotFound, id)
	}
	return nil
}

// isUniqueViolation 判断是否为唯一约束冲突，按驱动错误消息匹配。
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
