package middleware

import (
	"net/http"

	"github.com/wyfcoding/sortviz/response"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes 返回一个限制请求体大小的 Gin 中间件，limit <= 0 时不生效。
// 同时校验 Content-Length 与实际读取的字节数。
func MaxBodyBytes(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		if c.Request.ContentLength > limit {
			response.ErrorWithStatus(c, http.StatusRequestEntityTooLarge, "request body too large", "content length exceeded")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
