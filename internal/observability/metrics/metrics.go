// Package metrics exposes Prometheus instruments for the booking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed counts inbound messages by final result.
	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_messages_processed_total",
		Help: "Inbound messages processed, labeled by result.",
	}, []string{"result"})

	// BookingOutcomes counts executor runs by outcome.
	BookingOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_executor_outcomes_total",
		Help: "Booking executor outcomes (booked, conflict, failed) by kind.",
	}, []string{"kind", "outcome"})

	// HandleDuration observes end-to-end message handling latency.
	HandleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_message_handle_duration_seconds",
		Help:    "Latency of handling one inbound message.",
		Buckets: prometheus.DefBuckets,
	})

	// QueueDepthPolls counts empty vs non-empty queue polls in the worker.
	QueueDepthPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_queue_polls_total",
		Help: "Queue receive attempts, labeled empty or busy.",
	}, []string{"state"})
)
