package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		jobRunsTotal,
		jobItemsTotal,
		remindersSentTotal,
	)
}

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Scheduled job executions by job name and result.",
		},
		[]string{"job", "result"}, // result: 'ok', 'error', 'skipped'
	)

	jobItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduled_job_items_total",
			Help: "Rows touched by scheduled jobs, by job name.",
		},
		[]string{"job"},
	)

	remindersSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "expiry_reminders_sent_total",
			Help: "Expiry reminder notifications by days-left bucket.",
		},
		[]string{"days_left"},
	)
)

func IncJobRun(job, result string) {
	jobRunsTotal.WithLabelValues(norm(job), norm(result)).Inc()
}

func AddJobItems(job string, n int) {
	jobItemsTotal.WithLabelValues(norm(job)).Add(float64(n))
}

func IncReminderSent(daysLeft string) {
	remindersSentTotal.WithLabelValues(norm(daysLeft)).Inc()
}
