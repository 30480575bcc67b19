package authflow

import (
	"strings"
	"sync"
	"testing"
)

func TestMetricNamesCoverEveryID(t *testing.T) {
	for _, id := range MetricIDs() {
		name := MetricName(id)
		if name == "" {
			t.Errorf("metric %d has no name", id)
		}
		if !strings.HasPrefix(name, "authflow_") {
			t.Errorf("metric name %q missing prefix", name)
		}
	}
	if MetricName(metricCount) != "" {
		t.Error("out-of-range id returned a name")
	}
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)

	snapshot := m.Snapshot()
	if snapshot.Counters == nil {
		t.Fatal("Snapshot on nil returned nil map")
	}
	if got := snapshot.Counters[MetricLoginSuccess]; got != 0 {
		t.Fatalf("counter = %d", got)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricLoginSuccess)
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot().Counters[MetricLoginSuccess]; got != 8000 {
		t.Fatalf("counter = %d, want 8000", got)
	}
}

func TestDisabledMetricsReturnNil(t *testing.T) {
	if NewMetrics(MetricsConfig{}) != nil {
		t.Fatal("disabled metrics should be nil")
	}
}
