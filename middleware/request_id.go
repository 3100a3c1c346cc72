// Package middleware 提供了 Gin 的通用治理中间件实现。
package middleware

import (
	"github.com/wyfcoding/sortviz/contextx"
	"github.com/wyfcoding/sortviz/idgen"
	"github.com/wyfcoding/sortviz/tracing"

	"github.com/gin-gonic/gin"
)

const (
	HeaderXRequestID = "X-Request-ID"
	// maxRequestIDLen 限制沿用的客户端请求 ID 长度，超出时重新生成。
	maxRequestIDLen = 64
)

// RequestID 沿用或生成请求 ID，写入响应头、上下文与当前 Span。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderXRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = idgen.GenIDString()
		}

		ctx := contextx.WithRequestID(c.Request.Context(), id)
		tracing.AddTag(ctx, "http.request_id", id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderXRequestID, id)

		c.Next()
	}
}
