// Package metrics holds the prometheus collectors for ingestion runs
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "listingsync"

// Metrics is a set of collectors bound to one registry
// a nil *Metrics records nothing
type Metrics struct {
	reg *prometheus.Registry

	records       *prometheus.CounterVec
	runs          *prometheus.CounterVec
	recordSeconds *prometheus.HistogramVec
	indexFailures *prometheus.CounterVec
	queueDepth    *prometheus.GaugeVec
	deadLettered  *prometheus.CounterVec
}

// New registers every collector on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		records: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Queue records by source and terminal outcome",
		}, []string{"source", "outcome"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed ingestion runs by source and status",
		}, []string{"source", "status"}),
		recordSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "record_duration_seconds",
			Help:      "Time spent on one record from receive to ack",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		}, []string{"source"}),
		indexFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_failures_total",
			Help:      "Search upserts that failed after a successful catalog write",
		}, []string{"source"}),
		queueDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Pending messages per source queue at run start",
		}, []string{"source"}),
		deadLettered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_lettered_total",
			Help:      "Records moved to the dead-letter list after exhausting attempts",
		}, []string{"source"}),
	}
}

// Registry exposes the underlying registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Record counts one record outcome and observes its duration
func (m *Metrics) Record(source, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(source, outcome).Inc()
	m.recordSeconds.WithLabelValues(source).Observe(took.Seconds())
}

// Run counts a completed run
func (m *Metrics) Run(source, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(source, status).Inc()
}

// IndexFailure counts a failed search upsert
func (m *Metrics) IndexFailure(source string) {
	if m == nil {
		return
	}
	m.indexFailures.WithLabelValues(source).Inc()
}

// QueueDepth sets the last observed pending depth
func (m *Metrics) QueueDepth(source string, n int64) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(source).Set(float64(n))
}

// DeadLettered counts a record given up on
func (m *Metrics) DeadLettered(source string) {
	if m == nil {
		return
	}
	m.deadLettered.WithLabelValues(source).Inc()
}
