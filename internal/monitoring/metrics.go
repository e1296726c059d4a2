package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of one census run.
// Each instance owns its registry so runs and tests do not collide.
type Metrics struct {
	registry *prometheus.Registry

	PagesFetched   *prometheus.CounterVec
	Errors         *prometheus.CounterVec
	LinksFiltered  *prometheus.CounterVec
	Labels         *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	RunDuration    prometheus.Gauge
	DistinctLabels prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formatcensus_pages_fetched_total",
			Help: "The total number of pages fetched",
		}, []string{"kind"}), // 'listing' or 'detail'
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formatcensus_errors_total",
			Help: "The total number of errors encountered",
		}, []string{"type"}),
		LinksFiltered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formatcensus_links_total",
			Help: "Links found on the listing page by filter outcome",
		}, []string{"outcome"}), // 'kept', 'dropped', 'disallowed'
		Labels: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "formatcensus_format_labels_total",
			Help: "Observed format labels after normalization",
		}, []string{"label"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "formatcensus_fetch_duration_seconds",
			Help:    "Time spent fetching and extracting one page",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "formatcensus_run_duration_seconds",
			Help: "Wall time of the last census run",
		}),
		DistinctLabels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "formatcensus_distinct_labels",
			Help: "Distinct format labels in the last census run",
		}),
	}
}

func (m *Metrics) IncPagesFetched(kind string) {
	m.PagesFetched.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncErrors(errorType string) {
	m.Errors.WithLabelValues(errorType).Inc()
}

func (m *Metrics) IncLinks(outcome string) {
	m.LinksFiltered.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncLabel(label string) {
	m.Labels.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveFetch(kind string, seconds float64) {
	m.FetchDuration.WithLabelValues(kind).Observe(seconds)
}

// Registry exposes the registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps all metrics in the text exposition format, suitable for
// the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
