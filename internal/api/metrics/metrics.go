// Package metrics defines and registers all custom Prometheus metrics for the
// hotel reservation API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reservations"

// ── Booking metrics ───────────────────────────────────────────────────────────

// BookingOperationsTotal counts booking transactions by outcome.
// Labels:
//   - operation: "reserve", "modify" or "cancel"
//   - result: "ok" or the rejection reason (e.g. "room_unavailable", "over_capacity")
var BookingOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_operations_total",
		Help:      "Total number of booking transactions, by operation and result.",
	},
	[]string{"operation", "result"},
)

// ActiveReservations tracks the number of live reservations in the store.
var ActiveReservations = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_reservations",
		Help:      "Current number of confirmed reservations held in memory.",
	},
)

// AvailabilityQueryDuration measures how long availability lookups take.
var AvailabilityQueryDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "availability_query_duration_seconds",
		Help:      "Duration of availability computations over the reservation store.",
		Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
	},
)

// PersistenceErrorsTotal counts failed durability writes.
// Label:
//   - operation: "reserve", "modify", "cancel", "register" or "snapshot"
var PersistenceErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persistence_errors_total",
		Help:      "Total number of storage writes that failed after the in-memory change was applied.",
	},
	[]string{"operation"},
)

// IdempotentReplaysTotal counts reserve requests answered from the idempotency store.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of reserve requests replayed from an Idempotency-Key.",
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of booking events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of booking events pending in each audit worker channel.",
	},
	[]string{"worker_id"},
)

// AuditErrorsTotal counts booking events the audit recorder failed to store.
var AuditErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_errors_total",
		Help:      "Total number of booking events that could not be recorded.",
	},
)
