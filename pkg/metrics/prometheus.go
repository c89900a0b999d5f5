package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	snapshots   *prometheus.CounterVec
	skippedRows prometheus.Counter
	ingested    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	cacheEvents *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		snapshots: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_snapshots_computed_total",
				Help: "Total number of feature snapshots computed",
			},
			[]string{"user_id"},
		),
		skippedRows: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "finsight_skipped_records_total",
				Help: "Total number of ledger rows dropped during normalization",
			},
		),
		ingested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_transactions_ingested_total",
				Help: "Total number of transactions written per backend",
			},
			[]string{"backend"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		cacheEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_profile_cache_events_total",
				Help: "Profile cache events by kind",
			},
			[]string{"kind"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsight_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSnapshotComputed records one completed pipeline run for a user.
func (r *Recorder) RecordSnapshotComputed(userID string) {
	r.snapshots.WithLabelValues(userID).Inc()
}

// RecordSkippedRecords records rows dropped during normalization.
func (r *Recorder) RecordSkippedRecords(n int) {
	r.skippedRows.Add(float64(n))
}

// RecordIngested records a transaction written to a backend.
func (r *Recorder) RecordIngested(backend string) {
	r.ingested.WithLabelValues(backend).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheEvent records a profile cache hit, miss, coalesce or expiry.
func (r *Recorder) RecordCacheEvent(kind string) {
	r.cacheEvents.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
