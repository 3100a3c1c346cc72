package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/wyfcoding/sortviz/response"
	"github.com/wyfcoding/sortviz/tracing"
	"github.com/wyfcoding/sortviz/xerrors"

	"github.com/gin-gonic/gin"
)

// Recovery 捕获处理器 panic，记录带请求关联字段的日志并返回 ErrHandlerPanic。
// http.ErrAbortHandler 原样抛出，交由 net/http 中断连接。
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			ctx := c.Request.Context()
			err := xerrors.ErrHandlerPanic.WithDetail("%s %s", c.Request.Method, c.FullPath())
			err.Cause = fmt.Errorf("panic: %v", rec)
			tracing.SetError(ctx, err)
			logger.ErrorContext(ctx, "handler panic",
				"panic", rec,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"stack", string(debug.Stack()),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			response.Error(c, err)
			c.Abort()
		}()
		c.Next()
	}
}
