// Package hub – Prometheus instrumentation for the invocation pipeline.
//
// Labels are kept low-cardinality: spoke and action names come from the
// static catalog, statuses from the fixed lifecycle set, denial reasons from
// the two admission error codes.
package hub

import "github.com/prometheus/client_golang/prometheus"

var (
	// invocationsTotal counts invocations by spoke, action, and terminal or
	// gate status.
	invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_invocations_total",
			Help: "Total number of action invocations by spoke, action, and status.",
		},
		[]string{"spoke", "action", "status"},
	)

	// quotaDenialsTotal counts admission denials by reason.
	quotaDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_quota_denials_total",
			Help: "Total number of invocations denied by quota admission control.",
		},
		[]string{"reason"},
	)

	// contextExpiriesTotal counts confirmations that arrived after the
	// thread context expired.
	contextExpiriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_context_expiries_total",
			Help: "Total number of pending invocations abandoned due to context expiry.",
		},
	)
)

func init() {
	prometheus.MustRegister(invocationsTotal, quotaDenialsTotal, contextExpiriesTotal)
}
