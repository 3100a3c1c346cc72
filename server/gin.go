package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultShutdownTimeout = 5 * time.Second

// GinServer 封装了标准的 http.Server，用于运行 Gin 引擎并提供优雅的启动和关闭。
type GinServer struct {
	server   *http.Server
	addr     string
	logger   *slog.Logger
	listener net.Listener

	stopOnce sync.Once
	stopErr  error
}

// GinOption 调整底层 http.Server 的参数。
type GinOption func(*http.Server)

// WithTimeouts 设置读写与空闲超时，零值表示不限制。
func WithTimeouts(read, write, idle time.Duration) GinOption {
	return func(s *http.Server) {
		s.ReadTimeout = read
		s.WriteTimeout = write
		s.IdleTimeout = idle
	}
}

// NewGinServer 创建一个新的 Gin 服务器实例。
func NewGinServer(engine *gin.Engine, addr string, logger *slog.Logger, opts ...GinOption) *GinServer {
	srv := &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return &GinServer{
		server: srv,
		addr:   addr,
		logger: logger,
	}
}

// Listen 预先绑定监听地址，便于在启动前获取实际端口（addr 为 ":0" 时）。
func (s *GinServer) Listen() (net.Addr, error) {
	if s.listener != nil {
		return s.listener.Addr(), nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, err
	}
	s.listener = ln
	return ln.Addr(), nil
}

// Start 启动 HTTP 服务器并阻塞，ctx 取消时触发优雅关闭。
func (s *GinServer) Start(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	s.logger.Info("Starting Gin server", "addr", s.listener.Addr().String())

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Gin server stopping due to context cancellation")
		return s.shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// Stop 优雅地停止 Gin 服务器。
func (s *GinServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping Gin server gracefully")
	return s.shutdown(ctx)
}

// shutdown 只执行一次，Start 与 Stop 并发触发时返回同一结果。
func (s *GinServer) shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
		s.stopErr = s.server.Shutdown(ctx)
	})
	return s.stopErr
}
