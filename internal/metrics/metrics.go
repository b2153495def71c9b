// Package metrics holds the Prometheus collectors for the extraction pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for DocumentsProcessed.
const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
	ResultDuplicate = "duplicate"
)

// Metrics is the set of pipeline collectors. A nil *Metrics is valid and
// records nothing.
//
// Metrics:
//   - legalintel_documents_processed_total{result} - documents handled, by outcome
//   - legalintel_extraction_confidence - histogram of extraction confidence scores
//   - legalintel_extraction_duration_seconds - time spent in the rule engine
//   - legalintel_fields_extracted_total{field} - populated fields across all documents
type Metrics struct {
	DocumentsProcessed *prometheus.CounterVec
	Confidence         prometheus.Histogram
	Duration           prometheus.Histogram
	FieldsExtracted    *prometheus.CounterVec
}

// New registers the pipeline collectors with reg. Passing the same
// registerer twice panics, so callers create one Metrics per registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DocumentsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legalintel_documents_processed_total",
				Help: "Total number of documents handled by the metadata extractor",
			},
			[]string{"result"},
		),
		Confidence: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "legalintel_extraction_confidence",
				Help:    "Extraction confidence of completed documents",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		Duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "legalintel_extraction_duration_seconds",
				Help:    "Time spent running the rule engine on one document",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
		),
		FieldsExtracted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "legalintel_fields_extracted_total",
				Help: "Number of times each metadata field was populated",
			},
			[]string{"field"},
		),
	}
}

// Processed counts one document with the given outcome.
func (m *Metrics) Processed(result string) {
	if m == nil {
		return
	}
	m.DocumentsProcessed.WithLabelValues(result).Inc()
}

// Extracted records a completed extraction.
func (m *Metrics) Extracted(confidence, seconds float64, fields []string) {
	if m == nil {
		return
	}
	m.Confidence.Observe(confidence)
	m.Duration.Observe(seconds)
	for _, f := range fields {
		m.FieldsExtracted.WithLabelValues(f).Inc()
	}
}
