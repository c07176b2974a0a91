// Package metrics exposes prometheus collectors for the webhook and
// the trailing monitors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignalsTotal counts inbound webhook instructions by action and
	// outcome (accepted, rejected, failed).
	SignalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hook_signals_total",
		Help: "Inbound webhook instructions by action and outcome.",
	}, []string{"action", "outcome"})

	// OrdersPlacedTotal counts entry orders successfully placed.
	OrdersPlacedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hook_orders_placed_total",
		Help: "Entry orders placed at the venue.",
	}, []string{"symbol", "side"})

	// VenueErrorsTotal counts failed venue calls by operation.
	VenueErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hook_venue_errors_total",
		Help: "Venue calls that returned a non-success code or failed in transport.",
	}, []string{"op"})

	// MonitorIterationsTotal counts completed monitor iterations per account.
	MonitorIterationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hook_monitor_iterations_total",
		Help: "Trailing monitor iterations completed.",
	}, []string{"account"})

	// StopEscalationsTotal counts successful tiered stop-loss escalations.
	StopEscalationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hook_stop_escalations_total",
		Help: "Stop-loss escalations applied, by symbol and tier.",
	}, []string{"symbol", "tier"})

	// TrailingClosesTotal counts positions force-closed by the callback
	// trailing stop.
	TrailingClosesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hook_trailing_closes_total",
		Help: "Positions force-closed on callback-trailing reversal.",
	}, []string{"symbol"})

	// MonitorIterationSeconds observes how long one iteration takes;
	// slow venue calls stretch the polling period.
	MonitorIterationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hook_monitor_iteration_seconds",
		Help:    "Duration of one trailing monitor iteration.",
		Buckets: prometheus.DefBuckets,
	})
)
