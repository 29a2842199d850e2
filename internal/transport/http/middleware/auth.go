// Package middleware file: internal/transport/http/middleware/auth.go
package middleware

import (
	"PlugShell/internal/adminauth"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const claimKey = "plugshell.claim"

// RequireAdmin 检查 Authorization 请求头中的 Bearer Token，
// 只有有效的管理员令牌才能继续，解析出的 Claim 存入 gin 上下文。
func RequireAdmin(auth *adminauth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if !strings.HasPrefix(header, "Bearer ") || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "需要认证"})
			return
		}

		claims, err := auth.ParseToken(tokenString)
		if err != nil {
			msg := "Token无效或解析错误"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token已过期"
			}
			slog.Info("[AdminAPI] "+msg, "path", c.Request.URL.Path, "ip", c.ClientIP(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "需要认证"})
			return
		}
		if claims.Role != adminauth.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "需要管理员权限"})
			return
		}
		c.Set(claimKey, claims)
		c.Next()
	}
}

// ClaimFrom 返回 RequireAdmin 存入的 Claim
func ClaimFrom(c *gin.Context) *adminauth.Claim {
	v, ok := c.Get(claimKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*adminauth.Claim)
	return claims
}
