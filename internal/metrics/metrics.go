// internal/metrics/metrics.go

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session
	EventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sightmap_push_events_applied_total",
			Help: "Push events appended to the session collections",
		},
		[]string{"kind"},
	)

	EventsDuplicate = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sightmap_push_events_duplicate_total",
			Help: "Push events dropped because the entity was already present",
		},
		[]string{"kind"},
	)

	EventsMalformed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sightmap_push_events_malformed_total",
			Help: "Push payloads that could not be decoded",
		},
		[]string{"kind"},
	)

	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sightmap_fetch_failures_total",
			Help: "Bulk loads that failed and left a collection empty",
		},
		[]string{"kind"},
	)

	CollectionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sightmap_collection_entities",
			Help: "Entities currently held per collection",
		},
		[]string{"kind"},
	)

	// Views
	ViewDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sightmap_view_duration_seconds",
			Help:    "Time to filter and aggregate one dashboard view",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	// WebSocket
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sightmap_websocket_connections",
			Help: "Connected dashboard websocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sightmap_websocket_messages_sent_total",
			Help: "Messages broadcast to dashboard websocket clients",
		},
		[]string{"type"},
	)
)
