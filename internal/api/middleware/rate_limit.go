package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pkgerrors "github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/errors"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/metrics"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/response"
)

// RateLimiter 窗口计数限流器（*redis.Client 实现）
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 基于 Redis 固定窗口的速率限制中间件
// limit: 窗口内允许的最大请求数，<=0 不限
// window: 窗口时长
// rl 为 nil 或 Redis 出错时降级放行
func RateLimit(rl RateLimiter, limit int, window time.Duration, m *metrics.Metrics, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rate_limit:%s:%s", c.ClientIP(), c.FullPath())
		allowed, err := rl.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			logger.Warn("限流检查失败，降级放行", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if !allowed {
			m.RateLimited()
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			response.Error(c, http.StatusTooManyRequests, pkgerrors.CodeRateLimited, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
