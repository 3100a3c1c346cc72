package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wyfcoding/sortviz/response"
	"github.com/wyfcoding/sortviz/xerrors"

	"github.com/gin-gonic/gin"
)

// TimeoutMiddleware 为请求上下文设置截止时间；处理器超时且尚未写出响应时返回 ErrRequestTimeout。
// duration <= 0 时不设限。
func TimeoutMiddleware(duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if duration <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), duration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Writer.Written() {
			return
		}
		slog.WarnContext(ctx, "request deadline exceeded", "path", c.Request.URL.Path, "timeout", duration)
		response.Error(c, xerrors.ErrRequestTimeout.WithDetail("no response within %s", duration))
		c.Abort()
	}
}
