// Package retry 提供了带抖动的指数退避重试机制。
package retry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Func 定义了可被重试执行的业务函数原型。
type Func func() error

// Config 封装了重试策略的控制参数。MaxRetries 为 0 时仅执行一次。
type Config struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Jitter         float64
	MaxRetries     int
}

// DefaultRetryConfig 返回一个通用的默认重试配置。
func DefaultRetryConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

// Do 对任意错误按策略重试 fn。
func Do(ctx context.Context, fn Func, cfg Config) error {
	return If(ctx, fn, func(error) bool { return true }, cfg)
}

// If 仅在 shouldRetry 返回 true 时进行重试。
func If(ctx context.Context, fn Func, shouldRetry func(error) bool, cfg Config) error {
	if cfg.MaxRetries <= 0 {
		return fn()
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxRetries || !shouldRetry(lastErr) {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}

		next := float64(backoff) * cfg.Multiplier
		if cfg.Jitter > 0 {
			next += (rand.Float64()*2 - 1) * cfg.Jitter * next
		}
		backoff = time.Duration(next)
		if cfg.MaxBackoff > 0 {
			backoff = min(backoff, cfg.MaxBackoff)
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}
