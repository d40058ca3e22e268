// Package metrics exposes Prometheus counters for tool dispatch, backups and
// model inference.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// toolCallsTotal counts dispatched tool calls.
	// Labels: tool, classification, outcome (success or an error kind)
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rolo",
		Subsystem: "dispatch",
		Name:      "tool_calls_total",
		Help:      "Total tool calls by tool, classification and outcome",
	}, []string{"tool", "classification", "outcome"})

	// backupsCreatedTotal counts backups by kind (auto, manual).
	backupsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rolo",
		Subsystem: "backup",
		Name:      "created_total",
		Help:      "Total backups created by kind",
	}, []string{"kind"})

	backupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rolo",
		Subsystem: "backup",
		Name:      "failures_total",
		Help:      "Total backup attempts that failed and blocked a write",
	})

	backupsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rolo",
		Subsystem: "backup",
		Name:      "pruned_total",
		Help:      "Total auto backups removed by retention",
	})

	// llmLatencySeconds measures chat completion latency.
	// Labels: status (ok, error)
	llmLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rolo",
		Subsystem: "llm",
		Name:      "latency_seconds",
		Help:      "Chat completion latency",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"status"})

	// turnsTotal counts conversation turns by outcome.
	// Labels: outcome (final_answer, iteration_cap, inference_error, failed)
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rolo",
		Subsystem: "chat",
		Name:      "turns_total",
		Help:      "Total conversation turns by outcome",
	}, []string{"outcome"})
)

// RecordToolCall records the outcome of one dispatched call.
func RecordToolCall(tool, classification, outcome string) {
	toolCallsTotal.WithLabelValues(tool, classification, outcome).Inc()
}

// RecordBackupCreated records a new backup.
func RecordBackupCreated(isAuto bool) {
	kind := "manual"
	if isAuto {
		kind = "auto"
	}
	backupsCreatedTotal.WithLabelValues(kind).Inc()
}

// RecordBackupFailure records a backup that could not be taken.
func RecordBackupFailure() {
	backupFailuresTotal.Inc()
}

// RecordBackupsPruned records auto backups removed by retention.
func RecordBackupsPruned(n int) {
	if n > 0 {
		backupsPrunedTotal.Add(float64(n))
	}
}

// ObserveLLMCall records the latency of one chat completion.
func ObserveLLMCall(d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmLatencySeconds.WithLabelValues(status).Observe(d.Seconds())
}

// RecordTurn records how a conversation turn ended.
func RecordTurn(outcome string) {
	turnsTotal.WithLabelValues(outcome).Inc()
}
