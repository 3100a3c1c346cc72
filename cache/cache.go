// Package cache 提供进程内缓存抽象，用于复用相同输入的排序 Run 结果。
package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wyfcoding/sortviz/metrics"
)

// ErrCacheMiss 表示键不存在或已过期。
var ErrCacheMiss = errors.New("cache miss")

// Cache 定义缓存的通用接口。
type Cache interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// collectors 缓存命中率与耗时指标，metrics 为空时不采集。
type collectors struct {
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newCollectors(m *metrics.Metrics) *collectors {
	if m == nil {
		return nil
	}
	return &collectors{
		hits: m.NewCounterVec(&prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "The total number of cache hits",
		}, []string{"prefix"}),
		misses: m.NewCounterVec(&prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "The total number of cache misses",
		}, []string{"prefix"}),
		duration: m.NewHistogramVec(&prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "The duration of cache operations",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"prefix", "operation"}),
	}
}

func (c *collectors) observe(prefix, op string, start time.Time) {
	if c == nil {
		return
	}
	c.duration.WithLabelValues(prefix, op).Observe(time.Since(start).Seconds())
}

func (c *collectors) hit(prefix string) {
	if c != nil {
		c.hits.WithLabelValues(prefix).Inc()
	}
}

func (c *collectors) miss(prefix string) {
	if c != nil {
		c.misses.WithLabelValues(prefix).Inc()
	}
}

// RunKey 计算排序 Run 的缓存键：算法名、是否快速计数与输入数值按位哈希。
// 相同输入（包括 -0 与 0 的区别）得到相同键。
func RunKey(algorithm string, fastCount bool, values []float64) string {
	d := xxhash.New()
	_, _ = d.WriteString(algorithm)
	if fastCount {
		_, _ = d.Write([]byte{1})
	} else {
		_, _ = d.Write([]byte{0})
	}

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(values)))
	_, _ = d.Write(buf[:])
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}

	return algorithm + ":" + strconv.FormatUint(d.Sum64(), 16)
}
