// Package server 提供 HTTP 与 WebSocket 服务的生命周期封装。
package server

import "context"

// Server 定义了可被 app 统一管理生命周期的服务。
type Server interface {
	// Start 启动服务并阻塞，直到 ctx 被取消或服务异常退出。
	Start(ctx context.Context) error
	// Stop 优雅停止服务，等待进行中的请求在 ctx 期限内完成。
	Stop(ctx context.Context) error
}
