// Package contextx 提供在 context.Context 中注入与提取请求级信息的工具函数。
// 使用私有类型作为 Key，防止跨包的 Key 冲突。
package contextx

import "context"

type contextKey int

const (
	RequestIDKey contextKey = iota // 请求唯一标识 Key。
	RunIDKey                       // 排序 Run 编号 Key。
)

// WithRequestID 将请求 ID 注入到 Context 中。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID 从 Context 中提取请求 ID。
func GetRequestID(ctx context.Context) string {
	if val, ok := ctx.Value(RequestIDKey).(string); ok {
		return val
	}
	return ""
}

// WithRunID 将 Run 编号注入到 Context 中，便于日志关联。
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID 从 Context 中提取 Run 编号。
func GetRunID(ctx context.Context) string {
	if val, ok := ctx.Value(RunIDKey).(string); ok {
		return val
	}
	return ""
}
