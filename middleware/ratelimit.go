package middleware

import (
	"log/slog"

	"github.com/wyfcoding/sortviz/limiter"
	"github.com/wyfcoding/sortviz/response"
	"github.com/wyfcoding/sortviz/xerrors"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware 构造一个通用的 Gin 限流中间件，使用客户端 IP 作为限流标识。
func RateLimitMiddleware(l limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		allowed, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			// Fail-Open：限流组件故障时不阻断业务，但必须记录告警日志。
			slog.ErrorContext(c.Request.Context(), "rate limiter internal error, fail-open applied", "key", key, "error", err)
			c.Next()
			return
		}

		if !allowed {
			slog.WarnContext(c.Request.Context(), "request rejected by rate limiter", "key", key, "path", c.Request.URL.Path)
			response.Error(c, xerrors.ErrRateLimited)
			c.Abort()
			return
		}

		c.Next()
	}
}
