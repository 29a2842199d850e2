// file: internal/transport/http/router/router.go
package router

import (
	"PlugShell/internal/adminauth"
	"PlugShell/internal/core/port"
	"PlugShell/internal/transport/http/middleware"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Dependencies 结构体用于将所有依赖项注入到路由器中
type Dependencies struct {
	Plugins       port.PluginLifecycle
	Auth          *adminauth.Authenticator
	Metrics       http.Handler // 为空时不挂载 /metrics
	RatePerSecond float64
	Burst         int
}

const (
	loginMaxFailures = 5
	loginLockout     = 15 * time.Minute
)

// New 创建管理接口的 HTTP 路由器 (V1 版本)。ctx 结束时后台清理协程随之退出。
func New(ctx context.Context, deps Dependencies) http.Handler {
	router := gin.New()

	// --- 配置全局中间件 ---
	router.Use(gin.Recovery(), requestLogger())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(middleware.ErrorHandlingMiddleware())

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	limiter := middleware.NewIPRateLimiter(ctx, rate.Limit(deps.RatePerSecond), deps.Burst)
	loginLock := middleware.NewLoginFailureLock(loginMaxFailures, loginLockout)

	v1 := router.Group("/api/v1")
	v1.Use(limiter.Middleware())
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", loginLock.Middleware(), loginHandler(deps.Auth))
		}

		pluginGroup := v1.Group("/plugins")
		pluginGroup.Use(middleware.RequireAdmin(deps.Auth))
		{
			pluginGroup.GET("", listPluginsHandler(deps.Plugins))
			pluginGroup.POST("", addPluginHandler(deps.Plugins))
			pluginGroup.GET("/:id", showPluginHandler(deps.Plugins))
			pluginGroup.DELETE("/:id", removePluginHandler(deps.Plugins))
			pluginGroup.POST("/:id/enable", enablePluginHandler(deps.Plugins))
			pluginGroup.POST("/:id/disable", disablePluginHandler(deps.Plugins))
			pluginGroup.POST("/:id/actions/:action", runActionHandler(deps.Plugins))
		}
	}

	return router
}

// requestLogger 以 slog 记录请求，避免 gin 默认日志写到 shell 的标准输出
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("[AdminAPI] 请求完成",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"elapsed", time.Since(start))
	}
}

// =============================================================================
//  认证
// =============================================================================

func loginHandler(auth *adminauth.Authenticator) gin.HandlerFunc {
	type requestBody struct {
		Password string `json:"password" binding:"required"`
	}
	return func(c *gin.Context) {
		var body requestBody
		if !bindJSON(c, &body) {
			return
		}
		if !auth.CheckPassword(body.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "密码无效"})
			return
		}
		token, expires, err := auth.GenToken()
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expires})
	}
}

// =============================================================================
//  插件
// =============================================================================

// bindJSON 解析请求体，失败时附加 ErrBadRequest 并保留校验错误以便中间件识别
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(fmt.Errorf("%w: %w", middleware.ErrBadRequest, err))
		return false
	}
	return true
}

func pluginID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(fmt.Errorf("%w: 无效的插件 id '%s'", middleware.ErrBadRequest, c.Param("id")))
		return 0, false
	}
	return id, true
}

func listPluginsHandler(plugins port.PluginLifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, _ := strconv.ParseBool(c.DefaultQuery("all", "false"))
		statuses, err := plugins.List(c.Request.Context(), all)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": statuses})
	}
}

func showPluginHandler(plugins port.PluginLifecycle) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pluginID(c)
		if !ok {
			return
		}
		status, err := plugins.Show(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": status})
	}
}

func addPluginHandler(plugins port.PluginLifecycle) gin.HandlerFunc {
	type requestBody struct {
		Source string `json:"source" binding:"required"`
		SHA256 string `json:"sha256"`
	}
	return func(c *gin.Context) {
		var body requestBody
		if !bindJSON(c, &body) {
			return
		}
		id, err := plugins.AddFrom(c.Request.Context(), body.Source, body.SHA256)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

func removePluginHandler(plugins port.PluginLifecycle) gin.HandlerFunc {
	return idOperation(plugins.Remove)
}

func enablePluginHandler(plugins port.PluginLifecycle) gin.HandlerFunc {
	return idOperation(plugins.Enable)
}

func disablePluginHandler(plugins port.PluginLifecycle) gin.HandlerFunc {
	return idOperation(plugins.Disable)
}

func idOperation(op func(ctx context.Context, id int64) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pluginID(c)
		if !ok {
			return
		}
		if err := op(c.Request.Context(), id); err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	}
}

func runActionHandler(plugins port.PluginLifecycle) gin.HandlerFunc {
	type requestBody struct {
		Args []string `json:"args"`
	}
	return func(c *gin.Context) {
		id, ok := pluginID(c)
		if !ok {
			return
		}
		var body requestBody
		if c.Request.ContentLength != 0 && !bindJSON(c, &body) {
			return
		}
		res, err := plugins.Run(c.Request.Context(), id, c.Param("action"), body.Args...)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"outcome":   res.Outcome.String(),
			"exit_code": res.ExitCode,
			"answer":    res.Answer,
		})
	}
}
