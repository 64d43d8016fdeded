package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signal-core/internal/engine"
)

// Prometheus exposes decision metrics in the text exposition format:
//
//	signal_runs_total{strategy}
//	signal_orders_total{product,side}
//	signal_product_failures_total{product}
//	signal_run_seconds
//	signal_trader_data_bytes
//
// It owns its registry so several instances can coexist in tests.
type Prometheus struct {
	registry *prometheus.Registry

	runs      *prometheus.CounterVec
	orders    *prometheus.CounterVec
	failures  *prometheus.CounterVec
	latency   prometheus.Histogram
	blobBytes prometheus.Gauge
}

// NewPrometheus registers the collectors on a fresh registry, together with
// the Go runtime and process collectors.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_runs_total",
				Help: "Engine runs",
			},
			[]string{"strategy"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_orders_total",
				Help: "Orders emitted",
			},
			[]string{"product", "side"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_product_failures_total",
				Help: "Products skipped because of a malformed book or a panic",
			},
			[]string{"product"},
		),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signal_run_seconds",
			Help:    "Engine run latency",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14),
		}),
		blobBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_trader_data_bytes",
			Help: "Size of the last encoded trader data",
		}),
	}
	p.registry.MustRegister(p.runs, p.orders, p.failures, p.latency, p.blobBytes)
	p.registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return p
}

// ObserveDecision implements engine.Observer.
func (p *Prometheus) ObserveDecision(d engine.Decision) {
	p.runs.WithLabelValues(d.Strategy).Inc()
	p.latency.Observe(d.Latency.Seconds())
	p.blobBytes.Set(float64(len(d.Result.TraderData)))
	for product, orders := range d.Result.Orders {
		for _, o := range orders {
			p.orders.WithLabelValues(product, o.Side()).Inc()
		}
	}
	for _, f := range d.Failures() {
		p.failures.WithLabelValues(f.Product).Inc()
	}
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves /metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
