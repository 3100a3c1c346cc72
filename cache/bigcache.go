package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/wyfcoding/sortviz/metrics"
)

// BigCache 实现了 Cache 接口，使用 allegro/bigcache 作为底层存储。
// 所有条目共享同一个全局 TTL。
type BigCache struct {
	cache   *bigcache.BigCache
	prefix  string
	metrics *collectors
}

// NewBigCache 创建并返回一个新的 BigCache 实例。
// ttl: 全局过期时间；maxMB: 最大容量（MB），0 表示不限制；m 可为空。
func NewBigCache(ttl time.Duration, maxMB int, m *metrics.Metrics) (*BigCache, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.HardMaxCacheSize = maxMB
	cfg.CleanWindow = ttl / 2
	if cfg.CleanWindow <= 0 || cfg.CleanWindow > 5*time.Minute {
		cfg.CleanWindow = 5 * time.Minute
	}
	cfg.Verbose = false

	c, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化 bigcache 失败: %w", err)
	}

	return &BigCache{cache: c, prefix: "runs", metrics: newCollectors(m)}, nil
}

// Get 读取 key 并反序列化到 value（必须为指针）。未命中返回 ErrCacheMiss。
func (c *BigCache) Get(_ context.Context, key string, value any) error {
	defer c.metrics.observe(c.prefix, "get", time.Now())

	data, err := c.cache.Get(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			c.metrics.miss(c.prefix)
			return fmt.Errorf("%w: %s", ErrCacheMiss, key)
		}
		return err
	}
	c.metrics.hit(c.prefix)
	return json.Unmarshal(data, value)
}

// Set 序列化 value 后写入。bigcache 不支持按键过期，expiration 被忽略。
func (c *BigCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	defer c.metrics.observe(c.prefix, "set", time.Now())

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return c.cache.Set(key, data)
}

// Delete 删除一个或多个键，键不存在时不报错。
func (c *BigCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := c.cache.Delete(key); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
			return err
		}
	}
	return nil
}

// Exists 检查键是否存在。
func (c *BigCache) Exists(_ context.Context, key string) (bool, error) {
	_, err := c.cache.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bigcache.ErrEntryNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Len 返回当前条目数。
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Close 关闭 BigCache 实例，停止后台清理协程。
func (c *BigCache) Close() error {
	return c.cache.Close()
}
