package throttle

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the engine's debug metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	calls        *prometheus.CounterVec
	debited      *prometheus.CounterVec
	suspensions  *prometheus.CounterVec
	casConflicts *prometheus.CounterVec
	partials     *prometheus.CounterVec
	resets       *prometheus.CounterVec
	interrupted  *prometheus.CounterVec
	waited       *prometheus.HistogramVec
}

// NewMetrics registers the engine metrics with reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "throttle",
				Name:      "calls_total",
				Help:      "Total number of throttle calls that reached an enabled record",
			},
			[]string{"uid"},
		),

		debited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "throttle",
				Name:      "debited_bytes_total",
				Help:      "Total bytes debited from uid quotas",
			},
			[]string{"uid"},
		),

		suspensions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "throttle",
				Name:      "suspensions_total",
				Help:      "Total number of sleeps by reason (exhausted, contention, pacing)",
			},
			[]string{"reason"},
		),

		casConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "throttle",
				Name:      "cas_conflicts_total",
				Help:      "Total number of lost quota compare-and-swap races",
			},
			[]string{"uid"},
		),

		partials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "throttle",
				Name:      "partial_allocations_total",
				Help:      "Total number of debits that covered only part of a request",
			},
			[]string{"uid"},
		),

		resets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "throttle",
				Name:      "window_resets_total",
				Help:      "Total number of quota windows started",
			},
			[]string{"uid"},
		),

		interrupted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "throttle",
				Name:      "interrupted_total",
				Help:      "Total number of throttle calls cut short by cancellation",
			},
			[]string{"uid"},
		),

		waited: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "throttle",
				Name:      "wait_seconds",
				Help:      "Time a throttle call spent sleeping",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"uid"},
		),
	}
}

func (m *Metrics) suspended(reason string) {
	if m == nil {
		return
	}
	m.suspensions.WithLabelValues(reason).Inc()
}

func (m *Metrics) observe(uid int64, res *Result) {
	if m == nil {
		return
	}

	label := strconv.FormatInt(uid, 10)
	m.calls.WithLabelValues(label).Inc()
	m.debited.WithLabelValues(label).Add(float64(res.Debited))
	m.waited.WithLabelValues(label).Observe(res.Waited.Seconds())

	if res.CASConflicts > 0 {
		m.casConflicts.WithLabelValues(label).Add(float64(res.CASConflicts))
	}
	if res.PartialAllocations > 0 {
		m.partials.WithLabelValues(label).Add(float64(res.PartialAllocations))
	}
	if res.WindowResets > 0 {
		m.resets.WithLabelValues(label).Add(float64(res.WindowResets))
	}
	if res.Interrupted {
		m.interrupted.WithLabelValues(label).Inc()
	}
}
