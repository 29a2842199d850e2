// Package middleware file: internal/transport/http/middleware/error_handler.go
package middleware

import (
	"PlugShell/internal/core/port"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorHandlingMiddleware 是一个Gin中间件，用于集中处理错误。
// 处理器通过 c.Error(err) 附加错误，这里把插件层的错误映射为 HTTP 状态码。
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// 只处理最后一个错误，它通常是根本原因
		err := c.Errors.Last().Err

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数验证失败", "details": ve.Error()})
			return
		}

		status := StatusFor(err)
		if status == http.StatusInternalServerError {
			slog.Error("[AdminAPI] 请求处理失败", "path", c.FullPath(), "error", err)
			c.JSON(status, gin.H{"error": "服务器内部错误"})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

// StatusFor 返回错误对应的 HTTP 状态码
func StatusFor(err error) int {
	switch {
	case errors.Is(err, port.ErrPluginNotFound), errors.Is(err, port.ErrOptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, port.ErrDuplicatePlugin), errors.Is(err, port.ErrRemovalBlocked):
		return http.StatusConflict
	case errors.Is(err, port.ErrIncompatible), errors.Is(err, port.ErrActionUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, port.ErrActionFailed), errors.Is(err, port.ErrSpawn), errors.Is(err, port.ErrProtocol):
		return http.StatusBadGateway
	case errors.Is(err, port.ErrInvalidInvocation), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrBadRequest 用于处理器自身发现的请求格式错误
var ErrBadRequest = errors.New("无效的请求")
