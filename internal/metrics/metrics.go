// CMWAPI - Common Map Widget API messaging core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cmwapi

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bus Metrics
	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmwapi_messages_published_total",
			Help: "Total number of messages published per channel",
		},
		[]string{"channel", "result"}, // result: "success", "failure"
	)

	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmwapi_messages_received_total",
			Help: "Total number of messages delivered to handlers per channel",
		},
		[]string{"channel"},
	)

	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cmwapi_publish_duration_seconds",
			Help:    "Duration of bus publish calls in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"channel"},
	)

	HandlerPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmwapi_handler_panics_total",
			Help: "Total number of recovered panics in channel handlers",
		},
		[]string{"channel"},
	)

	// Protocol Error Metrics
	ChannelErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmwapi_channel_errors_total",
			Help: "Total number of records sent on map.error",
		},
		[]string{"channel", "type"}, // type: "validation error", "internal error"
	)

	// Tree Metrics
	Overlays = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cmwapi_overlays",
			Help: "Current number of overlays in the tree",
		},
	)

	Features = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cmwapi_features",
			Help: "Current number of features in the tree",
		},
	)

	TreeMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmwapi_tree_mutations_total",
			Help: "Total number of overlay tree mutations",
		},
		[]string{"operation", "result"},
	)

	// State Persistence Metrics
	StateOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmwapi_state_operations_total",
			Help: "Total number of archive, retrieve and delete operations",
		},
		[]string{"operation", "result"},
	)

	StateSnapshotBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cmwapi_state_snapshot_bytes",
			Help: "Size of the last archived snapshot in bytes",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)
)

func result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordPublish records a bus publish and its latency.
func RecordPublish(channel string, duration time.Duration, err error) {
	MessagesPublished.WithLabelValues(channel, result(err)).Inc()
	PublishDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordReceive records a message handed to a channel handler.
func RecordReceive(channel string) {
	MessagesReceived.WithLabelValues(channel).Inc()
}

// RecordHandlerPanic records a recovered panic in a channel handler.
func RecordHandlerPanic(channel string) {
	HandlerPanics.WithLabelValues(channel).Inc()
}

// RecordChannelError records a record published on map.error.
func RecordChannelError(channel, errType string) {
	if channel == "" {
		channel = "none"
	}
	ChannelErrors.WithLabelValues(channel, errType).Inc()
}

// RecordTreeMutation records a tree operation and refreshes the size gauges.
func RecordTreeMutation(operation string, err error, overlays, features int) {
	TreeMutations.WithLabelValues(operation, result(err)).Inc()
	Overlays.Set(float64(overlays))
	Features.Set(float64(features))
}

// RecordStateOperation records an archive, retrieve or delete outcome.
func RecordStateOperation(operation string, err error) {
	StateOperations.WithLabelValues(operation, result(err)).Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
// States are encoded 0=closed, 1=half-open, 2=open.
func RecordBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
