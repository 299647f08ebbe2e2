package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		gatewayVerdictsTotal,
		gatewayQueryDuration,
		reconcileActionsTotal,
	)
}

var (
	gatewayVerdictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_verdicts_total",
			Help: "Status-check verdicts by gateway and settlement state.",
		},
		[]string{"gateway", "state"}, // state: 'completed', 'failed', 'unknown'
	)

	gatewayQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_query_duration_seconds",
			Help:    "Duration of gateway status-check calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"gateway"},
	)

	reconcileActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconcile_actions_total",
			Help: "Outcomes of reconciliation passes per subscription.",
		},
		[]string{"action"}, // 'activated', 'deleted', 'unresolved'
	)
)

func ObserveGatewayVerdict(gateway, state string) {
	gatewayVerdictsTotal.WithLabelValues(norm(gateway), norm(state)).Inc()
}

func ObserveGatewayQueryDuration(gateway string, seconds float64) {
	gatewayQueryDuration.WithLabelValues(norm(gateway)).Observe(seconds)
}

func ObserveReconcileAction(action string) {
	reconcileActionsTotal.WithLabelValues(norm(action)).Inc()
}
