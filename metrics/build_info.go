package metrics

import (
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// 逆序对计数方式，对应 sort.fast_count。
const (
	CounterQuadratic = "quadratic"
	CounterMerge     = "merge"
)

// RegisterBuildInfo 注册 sortviz_build_info 与 sortviz_counter_mode，仅首次调用生效。
// algorithms 排序后以逗号拼接为一个标签值。
func (m *Metrics) RegisterBuildInfo(service, version string, algorithms []string) {
	if m == nil || m.BuildInfo != nil {
		return
	}

	algos := slices.Sorted(slices.Values(algorithms))
	m.BuildInfo = m.NewGaugeVec(&prometheus.GaugeOpts{
		Name: "sortviz_build_info",
		Help: "Service version and the sorting algorithms it animates",
	}, []string{"service", "version", "algorithms"})
	m.BuildInfo.WithLabelValues(orUnknown(service), orUnknown(version), strings.Join(algos, ",")).Set(1)

	m.CounterMode = m.NewGaugeVec(&prometheus.GaugeOpts{
		Name: "sortviz_counter_mode",
		Help: "Default inversion counter, 1 marks the active mode",
	}, []string{"mode"})
	m.SetCounterMode(false)
}

// SetCounterMode 切换当前生效的默认计数方式，配置热更新时调用。
func (m *Metrics) SetCounterMode(fast bool) {
	if m == nil || m.CounterMode == nil {
		return
	}
	active, idle := CounterQuadratic, CounterMerge
	if fast {
		active, idle = idle, active
	}
	m.CounterMode.WithLabelValues(active).Set(1)
	m.CounterMode.WithLabelValues(idle).Set(0)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
