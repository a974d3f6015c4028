package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ==================== UserRateLimiter 按用户限流 ====================

// UserRateLimiter 每个 key 一个令牌桶
type UserRateLimiter struct {
	limiters sync.Map // key -> *limiterEntry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// NewUserRateLimiter perMinute 次/分钟，允许 burst 次突发
func NewUserRateLimiter(perMinute, burst int) *UserRateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &UserRateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		idleTTL: 30 * time.Minute,
	}
}

// Allow 是否放行
func (l *UserRateLimiter) Allow(key string) bool {
	actual, _ := l.limiters.LoadOrStore(key, &limiterEntry{
		limiter: rate.NewLimiter(l.limit, l.burst),
	})
	entry := actual.(*limiterEntry)

	entry.mu.Lock()
	entry.lastSeen = time.Now()
	entry.mu.Unlock()

	return entry.limiter.Allow()
}

// Sweep 清理长时间未访问的条目
func (l *UserRateLimiter) Sweep() int {
	removed := 0
	cutoff := time.Now().Add(-l.idleTTL)
	l.limiters.Range(func(k, v any) bool {
		entry := v.(*limiterEntry)
		entry.mu.Lock()
		idle := entry.lastSeen.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			l.limiters.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// Middleware 已登录按用户 ID 限流，否则按客户端 IP
func (l *UserRateLimiter) Middleware(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:ip:%s", scope, c.ClientIP())
		if userID := GetUserID(c); userID > 0 {
			key = fmt.Sprintf("%s:user:%d", scope, userID)
		}

		if !l.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    429,
				"message": "操作过于频繁，请稍后再试",
			})
			return
		}
		c.Next()
	}
}
