// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Total inbound messages handled, by classified intent",
		},
		[]string{"intent"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "assistant_request_duration_seconds",
			Help: "End-to-end duration of message handling in seconds",
		},
		[]string{"intent"},
	)

	CompletionCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_completion_calls_total",
			Help: "Completion service calls, by caller and outcome",
		},
		[]string{"caller", "status"},
	)

	DelegationCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_delegation_calls_total",
			Help: "Collaborator invocations, by service and outcome",
		},
		[]string{"service", "status"},
	)

	QueriesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_generated_queries_rejected_total",
			Help: "Generated queries rejected by the read-only validation gate",
		},
	)
)
