// Package metrics exposes Prometheus counters for settlement, notification and scheduled jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Settlement outcomes
const (
	OutcomeSold   = "sold"
	OutcomeUnsold = "unsold"
	OutcomeFailed = "failed"
)

// Attempt statuses for notification channels and jobs
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

var (
	SettlementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_settlements_total",
		Help: "Expired auction rooms processed, by outcome.",
	}, []string{"outcome"})

	WinnerNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_winner_notifications_total",
		Help: "Winner notification channel attempts, by channel and status.",
	}, []string{"channel", "status"})

	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_job_runs_total",
		Help: "Scheduled job executions, by job and status.",
	}, []string{"job", "status"})
)

// ObserveSettlement records one processed room.
func ObserveSettlement(outcome string) {
	SettlementsTotal.WithLabelValues(outcome).Inc()
}

// ObserveNotification records one channel attempt.
func ObserveNotification(channel string, success bool) {
	status := StatusFailure
	if success {
		status = StatusSuccess
	}
	WinnerNotificationsTotal.WithLabelValues(channel, status).Inc()
}

// ObserveJobRun records one job execution.
func ObserveJobRun(job, status string) {
	JobRunsTotal.WithLabelValues(job, status).Inc()
}
