package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "talktojesus"

var (
	// WebhookRequestsTotal counts payment webhook deliveries by event and outcome.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total payment webhook requests by event and status.",
	}, []string{"event", "status"})

	// WebhookDuration tracks webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Payment webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event"})

	// EntitlementDecisions counts access decisions by result and the rule that decided them.
	EntitlementDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "entitlement_decisions_total",
		Help:      "Entitlement decisions by result and reason.",
	}, []string{"result", "reason"})

	// ReconcileTotal counts subscription reconciliations by path and outcome.
	ReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "billing",
		Name:      "reconcile_total",
		Help:      "Subscription reconciliations by path (push, pull) and outcome.",
	}, []string{"path", "outcome"})

	// ProviderRequestsTotal counts payment provider API calls.
	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "razorpay",
		Name:      "requests_total",
		Help:      "Payment provider API calls by operation and outcome.",
	}, []string{"op", "outcome"})

	// ConversationsTotal counts voice exchanges by outcome.
	ConversationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "conversation",
		Name:      "requests_total",
		Help:      "Voice conversation requests by outcome.",
	}, []string{"outcome"})
)
