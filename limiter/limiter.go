// Package limiter 提供令牌桶限流器及其支持热更新的封装。
package limiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter 接口定义了限流器的通用行为。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error) // 检查是否允许请求通过。
}

// LocalLimiter 是一个进程内的全局令牌桶限流器，忽略 key。
type LocalLimiter struct {
	limiter *rate.Limiter
}

// NewLocalLimiter 创建并返回一个新的 LocalLimiter 实例。
// r: 每秒生成的令牌数；b: 令牌桶容量，即允许的瞬时突发请求数。
func NewLocalLimiter(r rate.Limit, b int) *LocalLimiter {
	return &LocalLimiter{limiter: rate.NewLimiter(r, b)}
}

// Allow 尝试从令牌桶中取出一个令牌。
func (l *LocalLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return l.limiter.Allow(), nil
}

// KeyedLimiter 为每个 key（通常是客户端 IP）维护独立的令牌桶。
type KeyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	r       rate.Limit
	b       int
	max     int
}

// NewKeyedLimiter 创建按 key 隔离的限流器，max 限制同时追踪的 key 数量，超出后整体重置。
func NewKeyedLimiter(r rate.Limit, b, max int) *KeyedLimiter {
	if max <= 0 {
		max = 10000
	}
	return &KeyedLimiter{
		buckets: make(map[string]*rate.Limiter),
		r:       r,
		b:       b,
		max:     max,
	}
}

// Allow 检查指定 key 的请求是否允许通过。
func (l *KeyedLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.max {
			l.buckets = make(map[string]*rate.Limiter)
		}
		bucket = rate.NewLimiter(l.r, l.b)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow(), nil
}
