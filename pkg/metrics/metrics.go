// Package metrics counts what a write invocation did. The counters are
// written as a prometheus textfile so node exporters or `go-fcp stats` can
// pick them up after the process exits.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const Prefix = "gofcp_"

// skip reasons
const (
	SkipLogical   = "logical"
	SkipProtected = "protected"
	SkipDuplicate = "duplicate"
	SkipEmpty     = "empty"
)

func InitMetricRegistry(target string) (*prometheus.Registry, prometheus.Registerer) {
	registry := prometheus.NewRegistry()
	registerer := prometheus.WrapRegistererWithPrefix(
		Prefix,
		prometheus.WrapRegistererWith(prometheus.Labels{"target": target}, registry))

	registerer.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry, registerer
}

// WriteMetrics is safe to use as a nil pointer; every method is then a no-op.
type WriteMetrics struct {
	registry   *prometheus.Registry
	Registerer prometheus.Registerer

	partitions   prometheus.Counter
	written      prometheus.Counter
	writtenBytes prometheus.Counter
	grown        prometheus.Counter
	skipped      *prometheus.CounterVec
	latency      prometheus.Histogram
}

func New(target string) *WriteMetrics {
	registry, registerer := InitMetricRegistry(target)
	m := &WriteMetrics{
		registry:   registry,
		Registerer: registerer,
		partitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "partitions_opened_total",
			Help: "Partition tables opened.",
		}),
		written: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "entries_written_total",
			Help: "Partition entries written.",
		}),
		writtenBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "entry_written_bytes_total",
			Help: "Bytes streamed into partition entries.",
		}),
		grown: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "entries_truncated_total",
			Help: "Partition entries grown to fit the source.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "entries_skipped_total",
			Help: "Partitions where nothing was written, by reason.",
		}, []string{"reason"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "entry_write_durations_histogram_seconds",
			Help:    "Entry write latency distributions.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
	}

	registerer.MustRegister(m.partitions, m.written, m.writtenBytes, m.grown, m.skipped, m.latency)
	return m
}

func (m *WriteMetrics) Opened() {
	if m == nil {
		return
	}
	m.partitions.Inc()
}

func (m *WriteMetrics) Written(n int64, d time.Duration) {
	if m == nil {
		return
	}
	m.written.Inc()
	m.writtenBytes.Add(float64(n))
	m.latency.Observe(d.Seconds())
}

func (m *WriteMetrics) Grown() {
	if m == nil {
		return
	}
	m.grown.Inc()
}

func (m *WriteMetrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(reason).Inc()
}

func (m *WriteMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteToTextfile dumps all metrics to path in the text exposition format.
func (m *WriteMetrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
