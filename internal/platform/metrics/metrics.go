package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pollRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lokmanch_poll_requests_total",
		Help: "Poll submissions received, by outcome",
	}, []string{"status"})

	forumRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lokmanch_forum_requests_total",
		Help: "Comment and reaction operations, by operation and outcome",
	}, []string{"op", "status"})

	reconcileRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lokmanch_reconcile_runs_total",
		Help: "Reconciliation passes completed by the worker",
	})

	reconcileFixedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lokmanch_reconcile_fixed_rows_total",
		Help: "Rows whose derived values were repaired by reconciliation",
	})

	reconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lokmanch_reconcile_duration_seconds",
		Help:    "Wall time of one reconciliation pass",
		Buckets: prometheus.DefBuckets,
	})

	viewsFlushedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lokmanch_views_flushed_total",
		Help: "Post views drained from Redis into Postgres",
	})
)

func ObservePollRequest(status string) {
	pollRequestsTotal.WithLabelValues(status).Inc()
}

func ObserveForumRequest(op, status string) {
	forumRequestsTotal.WithLabelValues(op, status).Inc()
}

func IncReconcileRun() {
	reconcileRunsTotal.Inc()
}

func AddReconcileFixed(n float64) {
	reconcileFixedTotal.Add(n)
}

func ObserveReconcileDuration(seconds float64) {
	reconcileDuration.Observe(seconds)
}

func AddViewsFlushed(n float64) {
	viewsFlushedTotal.Add(n)
}
