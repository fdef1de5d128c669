package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RefreshCycles counts refresh cycles by outcome: completed or skipped.
	RefreshCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commute_refresh_cycles_total",
			Help: "Total number of route refresh cycles by outcome.",
		},
		[]string{"outcome"},
	)

	RefreshCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "commute_refresh_cycle_duration_seconds",
			Help:    "Wall time of a full refresh cycle.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RouteRefreshes counts per-route computations by status: success or failed.
	RouteRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commute_route_refresh_total",
			Help: "Total number of per-route departure computations by status.",
		},
		[]string{"status"},
	)

	// Estimates counts duration estimates by source: live or synthetic.
	Estimates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commute_estimates_total",
			Help: "Total number of duration estimates by source.",
		},
		[]string{"source"},
	)

	// Notifications counts departure alerts by status: delivered, failed or skipped.
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commute_notifications_total",
			Help: "Total number of departure notifications by status.",
		},
		[]string{"status"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commute_operation_duration_seconds",
			Help:    "Latency of timed internal operations (provider calls, cache lookups).",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		RefreshCycles,
		RefreshCycleDuration,
		RouteRefreshes,
		Estimates,
		Notifications,
		OperationDuration,
	)
}
