// Package metrics exposes the prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors updated by extraction and the consolidation store.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsExtracted  *prometheus.CounterVec
	ExtractionFailures  prometheus.Counter
	ConsolidationWrites *prometheus.CounterVec
	BatchDuration       prometheus.Histogram
}

// New registers all collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		DocumentsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scg_documents_extracted_total",
			Help: "Fiscal documents extracted, by kind.",
		}, []string{"kind"}),
		ExtractionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scg_extraction_failures_total",
			Help: "Files that could not be extracted.",
		}),
		ConsolidationWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scg_consolidation_writes_total",
			Help: "Writes to the consolidation store, by field.",
		}, []string{"field"}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scg_batch_duration_seconds",
			Help:    "Duration of extraction batches.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.DocumentsExtracted,
		m.ExtractionFailures,
		m.ConsolidationWrites,
		m.BatchDuration,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
