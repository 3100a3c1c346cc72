package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	m := NewMetrics("sortviz")
	m.RegisterBuildInfo("sortviz", "1.0.0", []string{"quicksort", "mergesort"})
	m.RegisterBuildInfo("sortviz", "ignored", nil)

	runs := m.NewCounterVec(&prometheus.CounterOpts{Name: "sortviz_runs_total", Help: "runs"}, []string{"algorithm"})
	runs.WithLabelValues("quicksort").Add(2)

	if got := testutil.ToFloat64(runs.WithLabelValues("quicksort")); got != 2 {
		t.Fatalf("counter = %v, want 2", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`sortviz_runs_total{algorithm="quicksort"} 2`,
		`sortviz_build_info{algorithms="mergesort,quicksort",service="sortviz",version="1.0.0"} 1`,
		`sortviz_counter_mode{mode="quadratic"} 1`,
		`sortviz_counter_mode{mode="merge"} 0`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestSetCounterMode(t *testing.T) {
	m := NewMetrics("sortviz")
	m.SetCounterMode(true) // 注册前调用无效果

	m.RegisterBuildInfo("", "", []string{"quicksort"})
	mode := func(name string) float64 { return testutil.ToFloat64(m.CounterMode.WithLabelValues(name)) }

	if mode(CounterQuadratic) != 1 || mode(CounterMerge) != 0 {
		t.Fatalf("default mode should be quadratic")
	}
	m.SetCounterMode(true)
	if mode(CounterQuadratic) != 0 || mode(CounterMerge) != 1 {
		t.Fatalf("fast mode should mark merge")
	}
	if got := testutil.ToFloat64(m.BuildInfo.WithLabelValues("unknown", "unknown", "quicksort")); got != 1 {
		t.Errorf("empty service/version should be labelled unknown, got %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.SetCounterMode(true)
}
