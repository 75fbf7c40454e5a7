package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Record metrics
	RecordsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_records_appended_total",
			Help: "Total number of records durably appended",
		},
		[]string{"topic"},
	)

	RecordsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_records_read_total",
			Help: "Total number of records returned by reads",
		},
		[]string{"topic"},
	)

	AppendFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_append_failures_total",
			Help: "Total number of appends rejected or failed",
		},
		[]string{"topic", "reason"},
	)

	// Latency metrics
	AppendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventlog_append_latency_seconds",
			Help:    "Time from dequeue to durable append in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	// Storage metrics
	LogFileBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_log_file_bytes_written_total",
			Help: "Bytes appended to topic log files",
		},
		[]string{"topic"},
	)

	Topics = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "eventlog_topics",
			Help: "Number of topics held in memory",
		},
	)

	FramingRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventlog_framing_repairs_total",
			Help: "Appends that wrote a separator to repair an unterminated log file",
		},
	)

	// Recovery metrics
	RecoveryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_recovery_errors_total",
			Help: "Errors found while loading log files",
		},
		[]string{"kind"},
	)

	RecoveredRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventlog_recovered_records_total",
			Help: "Records loaded from disk at startup",
		},
	)

	// Audit metrics
	AuditDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventlog_audit_dropped_total",
			Help: "Audit entries dropped because the audit buffer was full",
		},
	)

	// HTTP metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventlog_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
