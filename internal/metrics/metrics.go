package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportsTotal counts import attempts by input format and outcome.
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vislog_imports_total",
			Help: "Total number of log imports",
		},
		[]string{"format", "status"},
	)

	// ImportRows counts data rows seen by imports, split by whether they were kept.
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vislog_import_rows_total",
			Help: "Total number of data rows processed by imports",
		},
		[]string{"result"}, // valid, dropped
	)

	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vislog_import_duration_seconds",
			Help:    "Import duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"format"},
	)

	ExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vislog_exports_total",
			Help: "Total number of workbook exports",
		},
	)

	// StoreEntries is the number of entries currently held by the store.
	StoreEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vislog_store_entries",
			Help: "Number of log entries in the store",
		},
	)

	HubDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vislog_hub_dropped_events_total",
			Help: "Change events dropped for slow subscribers",
		},
	)

	InboxFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vislog_inbox_failures_total",
			Help: "Inbox files that failed to import",
		},
	)
)
