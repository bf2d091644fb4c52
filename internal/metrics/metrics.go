package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	loadDuration *prometheus.HistogramVec
	datasetRows  prometheus.Gauge
	cacheLookups *prometheus.CounterVec
	queries      *prometheus.CounterVec
	filteredRows prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fmcg",
			Name:      "dataset_load_seconds",
			Help:      "Time spent loading and parsing a sales source.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"outcome"}),
		datasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fmcg",
			Name:      "dataset_rows",
			Help:      "Rows in the most recently loaded dataset.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fmcg",
			Name:      "dataset_cache_lookups_total",
			Help:      "Dataset cache lookups by result.",
		}, []string{"result"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fmcg",
			Name:      "queries_total",
			Help:      "Filter and aggregate runs by route.",
		}, []string{"route"}),
		filteredRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fmcg",
			Name:      "filtered_rows",
			Help:      "Rows left after applying a selection.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}),
	}

	for _, c := range []prometheus.Collector{m.loadDuration, m.datasetRows, m.cacheLookups, m.queries, m.filteredRows} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveLoad(d time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	} else {
		m.datasetRows.Set(float64(rows))
	}
	m.loadDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveQuery records one filter run for route that kept rows records.
func (m *Metrics) ObserveQuery(route string, rows int) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(route).Inc()
	m.filteredRows.Observe(float64(rows))
}
