// Package observe file: internal/observe/debug.go
package observe

import (
	"log/slog"
	"net/http"
	_ "net/http/pprof" // 自动注册 pprof
)

// EnablePprof 在指定地址上暴露 /debug/pprof 端点。
// 例如 addr 可以是 "localhost:6060"，为空时不启用
func EnablePprof(addr string) {
	if addr == "" {
		slog.Debug("pprof 未启用: 地址为空")
		return
	}
	go func() {
		slog.Info("pprof 端点已启动", "address", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			slog.Error("pprof 端点启动失败", "error", err)
		}
	}()
}
