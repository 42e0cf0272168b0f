package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for fetch and report runs.
type Metrics struct {
	// Acquisition metrics.
	FetchRequests   *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration   prometheus.Histogram
	RecordsFetched  prometheus.Counter
	RecordsDropped  *prometheus.CounterVec // labels: reason={missing,negative,rejected,duplicate}
	RecordsSaved    prometheus.Counter
	SnapshotCache   *prometheus.CounterVec // labels: result={hit,miss}
	RecordsProduced *prometheus.CounterVec // labels: loader

	// Report metrics.
	StageDuration *prometheus.HistogramVec // labels: stage
	PlotsWritten  prometheus.Counter
	LastRunTime   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)
	m.gatherer = reg
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamflow",
			Name:      "fetch_requests_total",
			Help:      "USGS daily-values requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "streamflow",
			Name:      "fetch_duration_seconds",
			Help:      "USGS daily-values request duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RecordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamflow",
			Name:      "records_fetched_total",
			Help:      "Daily values returned by the data service.",
		}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamflow",
			Name:      "records_dropped_total",
			Help:      "Daily values removed during cleaning, by reason.",
		}, []string{"reason"}),
		RecordsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamflow",
			Name:      "records_saved_total",
			Help:      "Daily values written to the snapshot.",
		}),
		SnapshotCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamflow",
			Name:      "snapshot_cache_total",
			Help:      "Snapshot lookups before fetching, by result.",
		}, []string{"result"}),
		RecordsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamflow",
			Name:      "records_produced_total",
			Help:      "Daily values handed to downstream loaders, by loader.",
		}, []string{"loader"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "streamflow",
			Name:      "report_stage_duration_seconds",
			Help:      "Duration of each analysis stage including its plot.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		PlotsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "streamflow",
			Name:      "plots_written_total",
			Help:      "PNG plots written by the report.",
		}),
		LastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamflow",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run completed.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.FetchRequests,
		m.FetchDuration,
		m.RecordsFetched,
		m.RecordsDropped,
		m.RecordsSaved,
		m.SnapshotCache,
		m.RecordsProduced,
		m.StageDuration,
		m.PlotsWritten,
		m.LastRunTime,
	}
}

// WriteTextfile exports the current metric values in the text exposition
// format for the node exporter textfile collector. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
