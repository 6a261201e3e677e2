// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadscout",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "leadscout",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "route"},
	)

	// Workflow callbacks by stage and outcome (ok, error, rejected)
	WebhookCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadscout",
			Subsystem: "webhook",
			Name:      "callbacks_total",
			Help:      "Workflow callbacks received",
		},
		[]string{"stage", "outcome"},
	)

	ConversationsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadscout",
			Subsystem: "webhook",
			Name:      "conversations_ingested_total",
			Help:      "Conversations stored from workflow callbacks",
		},
		[]string{"platform"},
	)

	// Outbound workflow triggers by platform and outcome
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadscout",
			Subsystem: "dispatch",
			Name:      "triggers_total",
			Help:      "Workflow triggers sent on search creation",
		},
		[]string{"platform", "outcome"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "leadscout",
			Subsystem: "dispatch",
			Name:      "trigger_duration_seconds",
			Help:      "Workflow trigger duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"platform"},
	)

	SearchesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "leadscout",
			Subsystem: "search",
			Name:      "created_total",
			Help:      "Searches created",
		},
	)

	SearchesFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadscout",
			Subsystem: "search",
			Name:      "finished_total",
			Help:      "Searches that reached a terminal status",
		},
		[]string{"status"},
	)

	PreviewFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadscout",
			Subsystem: "preview",
			Name:      "fetch_total",
			Help:      "Product page preview fetches",
		},
		[]string{"outcome"},
	)
)
