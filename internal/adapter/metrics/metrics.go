// Package metrics exposes run counters in the Prometheus text format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vertextoedge/image-loader/internal/domain"
	"github.com/vertextoedge/image-loader/internal/port"
)

const namespace = "image_loader"

// Ensure Collector implements port.RunMetrics
var _ port.RunMetrics = (*Collector)(nil)

// Collector holds the metrics of one process on a private registry
type Collector struct {
	registry *prometheus.Registry

	downloads *prometheus.CounterVec
	bytes     prometheus.Counter
	duration  *prometheus.HistogramVec

	runDuration   prometheus.Gauge
	runDispatched prometheus.Gauge
	lastRun       prometheus.Gauge
}

// NewCollector creates a Collector with every outcome label pre-initialized
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Finished downloads by outcome.",
		}, []string{"outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "written_bytes_total",
			Help:      "Response body bytes written to disk.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "download_duration_seconds",
			Help:      "Time from request start to outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		runDispatched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_urls",
			Help:      "URLs dispatched in the last run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run completed.",
		}),
	}

	c.registry.MustRegister(
		c.downloads,
		c.bytes,
		c.duration,
		c.runDuration,
		c.runDispatched,
		c.lastRun,
	)

	for _, o := range domain.Outcomes {
		c.downloads.WithLabelValues(o.String())
	}

	return c
}

// Registry returns the registry the collector writes to
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveDownload records one finished download
func (c *Collector) ObserveDownload(r domain.DownloadResult) {
	label := r.Outcome.String()
	c.downloads.WithLabelValues(label).Inc()
	if r.Bytes > 0 {
		c.bytes.Add(float64(r.Bytes))
	}
	c.duration.WithLabelValues(label).Observe(r.Duration.Seconds())
}

// ObserveRun records the end of a run
func (c *Collector) ObserveRun(summary *domain.Summary, d time.Duration) {
	c.runDuration.Set(d.Seconds())
	if summary != nil {
		c.runDispatched.Set(float64(summary.Dispatched()))
	}
	c.lastRun.SetToCurrentTime()
}

// WriteTextfile writes the registry to path in the node_exporter textfile format
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
