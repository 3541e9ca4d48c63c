package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg, "test")

	clock := newFakeClock()
	table := newTestTable(4, clock)
	engine := NewEngine(table, nil, &Config{
		Window:  time.Second,
		Clock:   clock,
		Sleep:   clock.Sleep,
		Metrics: metrics,
	}, discardLogger())

	rec, _ := table.GetOrCreate(1000, 0, 1000)
	engine.ThrottleRecord(context.Background(), rec, 2500)

	if got := testutil.ToFloat64(metrics.calls.WithLabelValues("1000")); got != 1 {
		t.Errorf("calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.debited.WithLabelValues("1000")); got != 2500 {
		t.Errorf("debited = %v, want 2500", got)
	}
	if got := testutil.ToFloat64(metrics.suspensions.WithLabelValues(reasonPacing)); got != 2 {
		t.Errorf("pacing suspensions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.resets.WithLabelValues("1000")); got != 2 {
		t.Errorf("window resets = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.partials.WithLabelValues("1000")); got != 2 {
		t.Errorf("partial allocations = %v, want 2", got)
	}
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	m.suspended(reasonExhausted)
	m.observe(1, &Result{Debited: 10, Interrupted: true})
}

func TestTableCollector(t *testing.T) {
	table := newTestTable(8, newFakeClock())
	table.GetOrCreate(1, 0, 100)
	table.GetOrCreate(2, 1, 200)

	collector := NewTableCollector(table, "test")
	// records gauge plus four gauges per uid
	if got := testutil.CollectAndCount(collector); got != 9 {
		t.Errorf("CollectAndCount() = %d, want 9", got)
	}

	empty := NewTableCollector(nil, "test")
	if got := testutil.CollectAndCount(empty, "test_table_records"); got != 1 {
		t.Errorf("CollectAndCount(nil table) = %d, want 1", got)
	}
}
