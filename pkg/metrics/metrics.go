// Package metrics provides Prometheus metrics for the Papertrail service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RulesEvaluatedTotal tracks rule evaluations by verdict
	RulesEvaluatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "papertrail",
			Subsystem: "evaluation",
			Name:      "rules_total",
			Help:      "Total number of rule evaluations by result",
		},
		[]string{"tenant_id", "check_type", "result"},
	)

	// EvaluationDuration tracks batch evaluation duration in seconds
	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "papertrail",
			Subsystem: "evaluation",
			Name:      "batch_duration_seconds",
			Help:      "Duration of batch rule evaluations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"tenant_id"},
	)

	// MatchesFoundTotal tracks document matches by type
	MatchesFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "papertrail",
			Subsystem: "matching",
			Name:      "matches_total",
			Help:      "Total number of document matches found by match type",
		},
		[]string{"tenant_id", "match_type"},
	)

	// MatchDuration tracks match run duration in seconds
	MatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "papertrail",
			Subsystem: "matching",
			Name:      "run_duration_seconds",
			Help:      "Duration of match runs in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"tenant_id"},
	)

	// DocumentsIngestedTotal tracks documents consumed from the ingest topic
	DocumentsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "papertrail",
			Subsystem: "ingest",
			Name:      "documents_total",
			Help:      "Total number of documents ingested by status",
		},
		[]string{"tenant_id", "doc_type", "status"},
	)

	// EmbeddingCacheHits tracks embedding cache effectiveness
	EmbeddingCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "papertrail",
			Subsystem: "embedding",
			Name:      "cache_total",
			Help:      "Embedding cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "papertrail",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// DatabaseQueryDuration tracks database query duration
	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "papertrail",
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// RecordEvaluation records a single rule evaluation
func RecordEvaluation(tenantID, checkType, result string) {
	RulesEvaluatedTotal.WithLabelValues(tenantID, checkType, result).Inc()
}

// RecordEvaluationBatch records a batch evaluation run
func RecordEvaluationBatch(tenantID string, durationSeconds float64) {
	EvaluationDuration.WithLabelValues(tenantID).Observe(durationSeconds)
}

// RecordMatch records a found document match
func RecordMatch(tenantID, matchType string) {
	MatchesFoundTotal.WithLabelValues(tenantID, matchType).Inc()
}

// RecordMatchRun records a full match run
func RecordMatchRun(tenantID string, durationSeconds float64) {
	MatchDuration.WithLabelValues(tenantID).Observe(durationSeconds)
}

// RecordIngestedDocument records a consumed document
func RecordIngestedDocument(tenantID, docType, status string) {
	DocumentsIngestedTotal.WithLabelValues(tenantID, docType, status).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}
