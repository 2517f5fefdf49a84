// Package metrics provides Prometheus metrics for metatree
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for metatree
type Metrics struct {
	// Dump pipeline metrics
	DumpRecordsTotal  *prometheus.CounterVec
	DumpVersionsTotal prometheus.Counter
	DumpMissesTotal   *prometheus.CounterVec

	// Search metrics
	SearchQueriesTotal prometheus.Counter
	SearchResultsTotal prometheus.Counter

	// Extraction metrics
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{}

	m.DumpRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metatree_dump_records_total",
			Help: "Total number of metadata records emitted by dump",
		},
		[]string{"type"},
	)

	m.DumpVersionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metatree_dump_versions_total",
			Help: "Total number of store versions processed by dump",
		},
	)

	m.DumpMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metatree_dump_misses_total",
			Help: "Total number of non-fatal lookup misses during dump",
		},
		[]string{"kind"},
	)

	m.SearchQueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metatree_search_queries_total",
			Help: "Total number of tree search queries",
		},
	)

	m.SearchResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "metatree_search_results_total",
			Help: "Total number of tree search results produced",
		},
	)

	m.ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metatree_extractions_total",
			Help: "Total number of extractor invocations",
		},
		[]string{"extractor", "status"},
	)

	m.ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "metatree_extraction_duration_seconds",
			Help:    "Duration of extractor invocations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"extractor"},
	)

	return m
}

// RecordDump records one emitted dump record
func (m *Metrics) RecordDump(recordType string) {
	if m == nil {
		return
	}
	m.DumpRecordsTotal.WithLabelValues(recordType).Inc()
}

// RecordDumpVersion records one store version processed by dump
func (m *Metrics) RecordDumpVersion() {
	if m == nil {
		return
	}
	m.DumpVersionsTotal.Inc()
}

// RecordDumpMiss records a non-fatal lookup miss during a dump
func (m *Metrics) RecordDumpMiss(kind string) {
	if m == nil {
		return
	}
	m.DumpMissesTotal.WithLabelValues(kind).Inc()
}

// RecordSearch records one search query and its result count
func (m *Metrics) RecordSearch(resultCount int) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.Inc()
	m.SearchResultsTotal.Add(float64(resultCount))
}

// RecordExtraction records an extractor invocation
func (m *Metrics) RecordExtraction(extractor, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(extractor, status).Inc()
	m.ExtractionDuration.WithLabelValues(extractor).Observe(duration.Seconds())
}
