package app

import (
	"time"

	"github.com/wyfcoding/sortviz/server"
)

// Option 配置应用程序选项。
type Option func(*options)

type options struct {
	servers         []server.Server // HTTP 等阻塞运行的服务。
	hooks           []Hook          // 非阻塞组件（调度器、WebSocket 分发循环）的启停钩子。
	cleanups        []func()        // 关闭时逆序执行的资源释放函数。
	shutdownTimeout time.Duration
}

// WithServer 注册随应用启动与关闭的服务。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithHook 注册一个生命周期钩子，服务启动前按注册顺序启动，关闭时逆序停止。
func WithHook(hook Hook) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hook)
	}
}

// WithCleanup 注册关闭时执行的清理函数。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		if cleanup != nil {
			o.cleanups = append(o.cleanups, cleanup)
		}
	}
}

// WithShutdownTimeout 设置优雅关闭的总超时，默认 10 秒。
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = d
	}
}
