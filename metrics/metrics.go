package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg         *prometheus.Registry
	Runs        *prometheus.CounterVec
	Lines       *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// stock extract quality
	StockSkipped    prometheus.Counter
	StockDuplicates prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ticket_runs_total"}, []string{"policy"})
	lines := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ticket_lines_total"}, []string{"status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "ticket_failures_total"}, []string{"stage"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ticket_run_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "ticket_stock_rows_skipped_total"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{Name: "ticket_stock_rows_duplicate_total"})

	r.MustRegister(runs, lines, failures, duration, skipped, duplicates)
	return &Registry{
		reg:             r,
		Runs:            runs,
		Lines:           lines,
		Failures:        failures,
		RunDuration:     duration,
		StockSkipped:    skipped,
		StockDuplicates: duplicates,
	}
}

// Fail counts a failed run at the given stage. Safe on a nil registry.
func (r *Registry) Fail(stage string) {
	if r == nil {
		return
	}
	r.Failures.WithLabelValues(stage).Inc()
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
