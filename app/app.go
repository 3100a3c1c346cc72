// Package app 提供了应用程序的组装与生命周期管理：服务启动、信号处理与资源清理。
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wyfcoding/sortviz/server"
)

const defaultShutdownTimeout = 10 * time.Second

// App 是应用程序的核心容器。
type App struct {
	name      string
	logger    *slog.Logger
	opts      options
	lifecycle *Lifecycle
}

// New 创建一个新的应用程序实例。
func New(name string, logger *slog.Logger, opts ...Option) *App {
	o := options{shutdownTimeout: defaultShutdownTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	lc := NewLifecycle(logger)
	for _, hook := range o.hooks {
		lc.Append(hook)
	}

	return &App{
		name:      name,
		logger:    logger,
		opts:      o,
		lifecycle: lc,
	}
}

// Run 启动应用并阻塞，直到收到 SIGINT/SIGTERM 或某个服务异常退出。
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext 启动应用并阻塞，直到 ctx 被取消或某个服务异常退出，随后执行优雅关闭。
func (a *App) RunContext(ctx context.Context) error {
	a.logger.Info("Application starting...", "name", a.name, "pid", os.Getpid())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	startErr := a.lifecycle.Start(runCtx)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		serveErr error
	)
	if startErr == nil {
		for _, srv := range a.opts.servers {
			wg.Add(1)
			go func(s server.Server) {
				defer wg.Done()
				if err := s.Start(runCtx); err != nil {
					a.logger.Error("server exited with error", "error", err)
					errOnce.Do(func() { serveErr = err })
					cancel()
				}
			}(srv)
		}
		<-runCtx.Done()
	}

	a.logger.Info("shutting down application", "name", a.name)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.opts.shutdownTimeout)
	defer shutdownCancel()

	var stopErr error
	for _, srv := range a.opts.servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			a.logger.Error("server failed to stop", "error", err)
			stopErr = errors.Join(stopErr, err)
		}
	}
	wg.Wait()

	if err := a.lifecycle.Stop(shutdownCtx); err != nil {
		stopErr = errors.Join(stopErr, err)
	}

	for i := len(a.opts.cleanups) - 1; i >= 0; i-- {
		a.opts.cleanups[i]()
	}

	if err := errors.Join(startErr, serveErr, stopErr); err != nil {
		return err
	}
	a.logger.Info("application shut down gracefully")
	return nil
}
