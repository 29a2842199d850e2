// file: internal/service/db_init.go
package service

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// InitShellTables 负责在系统启动时，检查并创建 shell 需要的持久化表。
func InitShellTables(db *sql.DB) error {
	if err := initPluginTable(db); err != nil {
		return fmt.Errorf("初始化插件目录表失败: %w", err)
	}
	if err := initOptionTable(db); err != nil {
		return fmt.Errorf("初始化选项表失败: %w", err)
	}

	slog.Debug("数据库: 所有表结构初始化/检查完成")
	return nil
}

// initPluginTable 创建插件目录表。
// id 自增且不复用，location 即插件可执行文件的绝对路径。
func initPluginTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS plugins (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        location TEXT UNIQUE NOT NULL,
        enabled BOOLEAN NOT NULL DEFAULT TRUE
    );`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("创建 'plugins' 表失败: %w", err)
	}
	return nil
}

// initOptionTable 创建 shell 选项表，插件通过 setOption/getOption 指令读写
func initOptionTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS options (
        name TEXT PRIMARY KEY,
        value TEXT NOT NULL DEFAULT '',
        description TEXT NOT NULL DEFAULT '',
        type TEXT NOT NULL DEFAULT 'string'
    );`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("创建 'options' 表失败: %w", err)
	}
	return nil
}
