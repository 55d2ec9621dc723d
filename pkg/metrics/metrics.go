package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracker Metrics
	TrackerSnapshotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wardenlevel_tracker_snapshots_total",
		Help: "The total number of collection snapshots delivered to the tracker",
	}, []string{"collection"})
	TrackerWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wardenlevel_tracker_writes_total",
		Help: "The total number of write operations issued against the document store",
	}, []string{"op"})
	TrackerWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardenlevel_tracker_write_errors_total",
		Help: "The total number of rejected store writes",
	})
	TrackerGuardRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardenlevel_tracker_guard_rejections_total",
		Help: "The total number of mutating commands rejected by the connection guard",
	})
	TrackerExportErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardenlevel_tracker_export_errors_total",
		Help: "The total number of failed change event publishes to Kafka",
	})

	// Archiver Metrics
	ArchiverEventsConsumedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardenlevel_archiver_events_consumed_total",
		Help: "The total number of change events consumed from Kafka",
	})
	ArchiverBatchWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardenlevel_archiver_batch_writes_total",
		Help: "The total number of batch write operations to PostgreSQL",
	})
	ArchiverWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wardenlevel_archiver_write_errors_total",
		Help: "The total number of errors occurred during PostgreSQL writes",
	})
	ArchiverUpsertLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wardenlevel_archiver_upsert_latency_seconds",
		Help:    "Latency of PostgreSQL UPSERT operations",
		Buckets: prometheus.DefBuckets,
	})
)
