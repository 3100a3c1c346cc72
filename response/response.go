// Package response 提供了统一的 HTTP 响应封装，支持业务错误到 HTTP 状态码的自动映射。
package response

import (
	"errors"
	"net/http"

	"github.com/wyfcoding/sortviz/xerrors"

	"github.com/gin-gonic/gin"
)

// HTTPStatusProvider 定义了能够提供 HTTP 状态码的错误接口。
type HTTPStatusProvider interface {
	HTTPStatus() int // 返回对应的 HTTP 标准状态码
}

// Success 发送一个标准的成功响应。
// 默认：HTTP 200，业务码 0，消息 "success"。
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"msg":  "success",
		"data": data,
	})
}

// SuccessWithStatus 发送一个带有指定 HTTP 状态码的成功响应。
func SuccessWithStatus(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, gin.H{
		"code": 0,
		"msg":  msg,
		"data": data,
	})
}

// SuccessWithRawData 发送原始数据的成功响应 (不包装 code 和 msg)。
// 用于 Health Check 与 /data 等系统接口。
func SuccessWithRawData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error 发送错误响应。
// 优先识别 xerrors 业务错误并输出其业务码与对外消息；其次识别 HTTPStatusProvider；否则兜底返回 500。
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	statusCode := http.StatusInternalServerError
	code := statusCode
	msg := err.Error()
	detail := ""

	if e, ok := xerrors.FromError(err); ok {
		statusCode = e.HTTPStatus()
		code = e.Code
		msg = e.Message
		detail = e.Detail
	} else {
		var provider HTTPStatusProvider
		if errors.As(err, &provider) {
			statusCode = provider.HTTPStatus()
			code = statusCode
		}
	}

	c.JSON(statusCode, gin.H{
		"code":   code,
		"msg":    msg,
		"detail": detail,
	})
}

// ErrorWithStatus 发送一个带有指定 HTTP 状态码、消息和详情的错误响应。
func ErrorWithStatus(c *gin.Context, status int, msg string, detail string) {
	c.JSON(status, gin.H{
		"code":   status,
		"msg":    msg,
		"detail": detail,
	})
}
