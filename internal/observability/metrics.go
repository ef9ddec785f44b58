package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// import pipeline.
type Metrics struct {
	FilesProcessed   prometheus.Counter
	PointsImported   prometheus.Counter
	DecodeErrors     prometheus.Counter
	PublishRetries   prometheus.Counter
	Downloads        prometheus.Counter
	DownloadsSkipped prometheus.Counter
	ImporterRunning  prometheus.Gauge

	FileProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all importer metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radolan_import",
			Name:      "files_processed_total",
			Help:      "Total composite files processed, including skipped corrupt files.",
		}),
		PointsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radolan_import",
			Name:      "points_imported_total",
			Help:      "Total observations published to the sink.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radolan_import",
			Name:      "decode_errors_total",
			Help:      "Total composite files skipped because they could not be decoded.",
		}),
		PublishRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radolan_import",
			Name:      "publish_retries_total",
			Help:      "Total retried sink publishes.",
		}),
		Downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radolan_import",
			Name:      "downloads_total",
			Help:      "Total remote files downloaded.",
		}),
		DownloadsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "radolan_import",
			Name:      "downloads_skipped_total",
			Help:      "Total downloads skipped because the file already exists locally.",
		}),
		ImporterRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "radolan_import",
			Name:      "importer_running",
			Help:      "1 when the import loop is active, 0 when shut down.",
		}),
		FileProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "radolan_import",
			Name:      "file_processing_duration_seconds",
			Help:      "Duration of decoding, classifying, and publishing one composite file.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}

	prometheus.MustRegister(
		m.FilesProcessed,
		m.PointsImported,
		m.DecodeErrors,
		m.PublishRetries,
		m.Downloads,
		m.DownloadsSkipped,
		m.ImporterRunning,
		m.FileProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registry registration to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesProcessed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radolan_import", Name: "files_processed_total"}),
		PointsImported:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radolan_import", Name: "points_imported_total"}),
		DecodeErrors:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radolan_import", Name: "decode_errors_total"}),
		PublishRetries:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radolan_import", Name: "publish_retries_total"}),
		Downloads:              prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radolan_import", Name: "downloads_total"}),
		DownloadsSkipped:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "radolan_import", Name: "downloads_skipped_total"}),
		ImporterRunning:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "radolan_import", Name: "importer_running"}),
		FileProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "radolan_import", Name: "file_processing_duration_seconds"}),
	}
}
