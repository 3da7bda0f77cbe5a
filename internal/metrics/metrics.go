package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "booking_created_total",
			Help:      "Count of bookings created, by kind (single or recurring).",
		},
		[]string{"kind"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled.",
		},
	)

	bookingRescheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "booking_rescheduled_total",
			Help:      "Count of bookings rescheduled in place.",
		},
	)

	conflictRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "booking_conflict_rejected_total",
			Help:      "Count of booking requests rejected due to interval conflicts.",
		},
	)

	permissionDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roombook",
			Name:      "permission_denied_total",
			Help:      "Count of operations rejected for missing capabilities.",
		},
		[]string{"action"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingCancelled, bookingRescheduled, conflictRejected, permissionDenied)
	})
}

func IncBookingCreated(kind string) {
	bookingCreated.WithLabelValues(kind).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncBookingRescheduled() {
	bookingRescheduled.Inc()
}

func IncConflictRejected() {
	conflictRejected.Inc()
}

func IncPermissionDenied(action string) {
	permissionDenied.WithLabelValues(action).Inc()
}
