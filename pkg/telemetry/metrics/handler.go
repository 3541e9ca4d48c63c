package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the scrape endpoint for the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(
		c.registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
			ErrorLog:          slogAdapter{slog.Default().With("component", "metrics.handler")},
			Registry:          c.registry,
		},
	)
}

// HandlerWithOptions returns the scrape endpoint with custom options.
func (c *Collector) HandlerWithOptions(opts promhttp.HandlerOpts) http.Handler {
	return promhttp.HandlerFor(c.registry, opts)
}

// slogAdapter satisfies promhttp.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Println(v ...any) {
	a.logger.Error("metrics collection failed", "detail", v)
}
