// Package middleware file: internal/transport/http/middleware/limiter.go
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 10 * time.Minute
	limiterIdleTimeout     = 15 * time.Minute
)

// limiterEntry 存储限制器和最后访问时间
type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ============================================================================
//  按 IP 地址的速率限制器
// ============================================================================

// IPRateLimiter 为每个客户端 IP 维护一个令牌桶
type IPRateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter 创建 IP 速率限制器，后台清理协程在 ctx 结束时退出
func NewIPRateLimiter(ctx context.Context, r rate.Limit, b int) *IPRateLimiter {
	l := &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    b,
	}
	go l.cleanupDaemon(ctx)
	return l
}

// getLimiter 返回或创建指定IP的速率限制器
func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, exists := l.limiters[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// cleanupDaemon 定期清理不活跃的IP条目
func (l *IPRateLimiter) cleanupDaemon(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			for ip, entry := range l.limiters {
				if time.Since(entry.lastSeen) > limiterIdleTimeout {
					delete(l.limiters, ip)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Middleware 返回 gin 中间件
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.getLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁，请稍后再试。"})
			return
		}
		c.Next()
	}
}

// ============================================================================
//  登录失败计数与临时锁定
// ============================================================================

// LoginFailureLock 在同一 IP 连续登录失败达到上限后临时拒绝其登录请求
type LoginFailureLock struct {
	failureCache    *cache.Cache
	maxFailures     int
	lockoutDuration time.Duration
}

// NewLoginFailureLock 创建一个新的登录失败锁定器
func NewLoginFailureLock(maxFailures int, lockoutDuration time.Duration) *LoginFailureLock {
	return &LoginFailureLock{
		failureCache:    cache.New(5*time.Minute, 10*time.Minute),
		maxFailures:     maxFailures,
		lockoutDuration: lockoutDuration,
	}
}

// Middleware 包裹登录处理器，根据其响应状态计数
func (l *LoginFailureLock) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		lockKey := "lock:" + ip
		failureKey := "failures:" + ip

		if _, found := l.failureCache.Get(lockKey); found {
			slog.Warn("[AdminAPI] 已锁定的来源再次尝试登录", "ip", ip)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "密码无效"})
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			// Increment 在 key 不存在时返回错误，此时为第一次失败
			if err := l.failureCache.Increment(failureKey, int64(1)); err != nil {
				l.failureCache.Set(failureKey, int64(1), cache.DefaultExpiration)
			}
			var failures int
			if x, found := l.failureCache.Get(failureKey); found {
				failures = int(x.(int64))
			}
			slog.Info("[AdminAPI] 登录失败", "ip", ip, "failures", failures)

			if failures >= l.maxFailures {
				l.failureCache.Set(lockKey, true, l.lockoutDuration)
				l.failureCache.Delete(failureKey)
				slog.Warn("[AdminAPI] 来源已被临时锁定", "ip", ip, "duration", l.lockoutDuration)
			}
		case http.StatusOK:
			l.failureCache.Delete(failureKey)
		}
	}
}
