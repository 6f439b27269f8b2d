package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	webhookEventsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook_relay",
			Name:      "delivery_events_total",
			Help:      "Total number of webhook deliveries by classified kind.",
		},
		[]string{"kind"}, // message, status, unrecognized, malformed
	)

	messagesStoredCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook_relay",
			Name:      "messages_stored_total",
			Help:      "Total number of inbound message store attempts.",
		},
		[]string{"status"}, // success, error
	)

	repliesSentCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook_relay",
			Name:      "replies_sent_total",
			Help:      "Total number of Send API calls.",
		},
		[]string{"purpose", "status"}, // purpose: reply, startup, manual
	)

	messagesSkippedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook_relay",
			Name:      "messages_skipped_total",
			Help:      "Inbound messages that were neither stored nor replied to.",
		},
		[]string{"reason"},
	)

	verificationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "webhook_relay",
			Name:      "verifications_total",
			Help:      "Webhook verification challenges by outcome.",
		},
		[]string{"outcome"},
	)

	dispatchDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "webhook_relay",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of delivery event dispatch.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
