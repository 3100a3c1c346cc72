package animation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wyfcoding/sortviz/algorithm"
	"github.com/wyfcoding/sortviz/metrics"
)

// sortMetrics 排序动画的业务指标，nil 时所有方法为空操作。
type sortMetrics struct {
	runs     *prometheus.CounterVec
	frames   *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

func newSortMetrics(m *metrics.Metrics) *sortMetrics {
	if m == nil {
		return nil
	}
	return &sortMetrics{
		runs: m.NewCounterVec(&prometheus.CounterOpts{
			Namespace: "sortviz",
			Name:      "runs_total",
			Help:      "Total number of animation runs served, by algorithm and source",
		}, []string{"algorithm", "source"}),
		frames: m.NewHistogramVec(&prometheus.HistogramOpts{
			Namespace: "sortviz",
			Name:      "run_frames",
			Help:      "Number of frames recorded per run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"algorithm"}),
		duration: m.NewHistogramVec(&prometheus.HistogramOpts{
			Namespace: "sortviz",
			Name:      "run_duration_seconds",
			Help:      "Time spent computing a run",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
		}, []string{"algorithm"}),
	}
}

func (m *sortMetrics) observeRun(algo algorithm.Algorithm, source string, frames int, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(string(algo), source).Inc()
	if source == "compute" {
		m.frames.WithLabelValues(string(algo)).Observe(float64(frames))
		m.duration.WithLabelValues(string(algo)).Observe(d.Seconds())
	}
}
