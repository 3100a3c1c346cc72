package middleware

import (
	"strconv"
	"time"

	"github.com/wyfcoding/sortviz/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsOptions 定义指标中间件的可选参数。
type MetricsOptions struct {
	SlowThreshold time.Duration
	SkipPaths     []string
}

// HTTPMetricsMiddleware 返回一个用于采集 HTTP 请求指标的 Gin 中间件。
func HTTPMetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return HTTPMetricsMiddlewareWithOptions(m, MetricsOptions{})
}

// HTTPMetricsMiddlewareWithOptions 返回一个可配置的 HTTP 指标采集中间件。
// path 维度使用路由模板（如 /api/v1/sort/:algorithm），避免基数膨胀。
func HTTPMetricsMiddlewareWithOptions(m *metrics.Metrics, opts MetricsOptions) gin.HandlerFunc {
	skip := make(map[string]struct{})
	for _, path := range opts.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		inFlight := m.HTTPInFlight.WithLabelValues(c.Request.Method, path)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusStr := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, statusStr).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(latency.Seconds())
		if opts.SlowThreshold > 0 && latency > opts.SlowThreshold {
			m.HTTPSlowRequestsTotal.WithLabelValues(c.Request.Method, path).Inc()
		}
	}
}
