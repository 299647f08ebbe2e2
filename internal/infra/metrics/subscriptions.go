package metrics

import (
	"media-subscription-platform/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsTotal,
		sweepTransitionsTotal,
	)
}

var (
	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Current number of subscriptions by status.",
		},
		[]string{"status"}, // 'pending', 'active', 'expired', 'cancelled'
	)

	sweepTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_sweep_transitions_total",
			Help: "Status transitions applied by the wall-clock sweep.",
		},
		[]string{"from", "to"},
	)
)

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	statuses := []model.SubscriptionStatus{
		model.SubscriptionStatusPending,
		model.SubscriptionStatusActive,
		model.SubscriptionStatusExpired,
		model.SubscriptionStatusCancelled,
	}
	for _, status := range statuses {
		count := counts[status]
		subscriptionsTotal.WithLabelValues(string(status)).Set(float64(count))
	}
}

func ObserveSweepTransition(from, to string) {
	sweepTransitionsTotal.WithLabelValues(norm(from), norm(to)).Inc()
}
