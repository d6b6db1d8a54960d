// Package metrics exposes the Prometheus instrumentation shared across the
// debate engine, the provider gateway, and the event broadcaster. Metrics
// register on the default registry at import time and are served on
// /metrics by the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DebatesStarted counts tasks accepted for execution.
	DebatesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailcouncil_debates_started_total",
		Help: "Debate tasks accepted for execution",
	})

	// DebatesCompleted counts tasks that reached a decision.
	DebatesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailcouncil_debates_completed_total",
		Help: "Debate tasks that finished with a decision",
	})

	// DebatesFailed counts tasks finalized as failed, cancellations included.
	DebatesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailcouncil_debates_failed_total",
		Help: "Debate tasks finalized as failed",
	})

	// DebateDuration observes wall-clock seconds from RUNNING to terminal.
	DebateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mailcouncil_debate_duration_seconds",
		Help:    "Wall-clock duration of debates from start to terminal state",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"team"})

	// ProviderRequests counts generation attempts per backend and outcome.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailcouncil_provider_requests_total",
		Help: "LLM generation attempts by provider and outcome",
	}, []string{"provider", "outcome"})

	// ProviderRequestDuration observes per-attempt latency by backend.
	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mailcouncil_provider_request_duration_seconds",
		Help:    "Latency of individual LLM generation attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// ProviderFallbacks counts calls that moved from the remote backend to
	// the local one after a failure.
	ProviderFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailcouncil_provider_fallbacks_total",
		Help: "Generation calls that fell back to the local provider",
	})

	// EventSubscribers gauges currently attached event stream consumers.
	EventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mailcouncil_event_subscribers",
		Help: "Currently connected event stream subscribers",
	})

	// EventsDropped counts events evicted from slow subscriber buffers.
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mailcouncil_events_dropped_total",
		Help: "Events dropped because a subscriber buffer was full",
	})
)
