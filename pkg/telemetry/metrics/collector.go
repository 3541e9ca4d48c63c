package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mercator-hq/uidthrottle/pkg/config"
)

// Collector is the process-wide metrics registry plus the metrics the daemon
// records outside the throttle engine.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	http    *HTTPMetrics
	control *ControlMetrics
}

// NewCollector creates a collector. If registry is nil a new one is created
// with the Go runtime and process collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		http:     NewHTTPMetrics(cfg.Namespace, registry),
		control:  NewControlMetrics(cfg.Namespace, registry),
	}
}

// Namespace returns the metric name prefix.
func (c *Collector) Namespace() string {
	return c.config.Namespace
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Register adds collectors owned by other packages, such as the throttle
// engine counters and the table collector.
func (c *Collector) Register(cs ...prometheus.Collector) error {
	for _, col := range cs {
		if err := c.registry.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// RecordCommand counts an administrative command. It is safe on a nil
// Collector.
func (c *Collector) RecordCommand(source string, applied bool) {
	if c == nil || !c.config.Enabled {
		return
	}
	c.control.Record(source, applied)
}

// InstrumentHandler wraps h with request metrics labelled by route. With
// metrics disabled h is returned unchanged.
func (c *Collector) InstrumentHandler(route string, h http.Handler) http.Handler {
	if c == nil || !c.config.Enabled {
		return h
	}
	return c.http.Instrument(route, h)
}

// ControlMetrics counts administrative commands.
type ControlMetrics struct {
	commands *prometheus.CounterVec
}

// NewControlMetrics creates and registers the control metrics.
func NewControlMetrics(namespace string, registry prometheus.Registerer) *ControlMetrics {
	cm := &ControlMetrics{
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "control",
				Name:      "commands_total",
				Help:      "Administrative commands by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
	}
	registry.MustRegister(cm.commands)
	return cm
}

// Record counts one command.
func (cm *ControlMetrics) Record(source string, applied bool) {
	outcome := "rejected"
	if applied {
		outcome = "applied"
	}
	cm.commands.WithLabelValues(source, outcome).Inc()
}
