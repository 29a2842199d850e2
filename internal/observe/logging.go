// Package observe file: internal/observe/logging.go
package observe

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel 把配置中的级别字符串转换为 slog.Level，无法识别时为 INFO
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger 初始化全局的结构化日志记录器。
// 日志写到标准错误，避免与 shell 的交互输出混在一起。
func InitLogger(levelStr, format string) {
	slog.SetDefault(NewLogger(os.Stderr, levelStr, format))
}

// NewLogger 按级别和格式 (text/json) 创建 logger
func NewLogger(w io.Writer, levelStr, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(levelStr),
		AddSource: strings.EqualFold(levelStr, "debug"),
	}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
