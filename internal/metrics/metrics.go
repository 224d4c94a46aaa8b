package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "appointly"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_submitted_total",
			Help:      "Bookings accepted by the scheduling store, by variant.",
		},
		[]string{"variant"},
	)

	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rejections_total",
			Help:      "Booking requests rejected before submission, by reason code.",
		},
		[]string{"reason"},
	)

	reminders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_total",
			Help:      "Reminder deliveries by result.",
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsSubmitted, bookingRejections, reminders)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingSubmitted(variant string) {
	bookingsSubmitted.WithLabelValues(variant).Inc()
}

func IncBookingRejected(reason string) {
	bookingRejections.WithLabelValues(reason).Inc()
}

// IncReminder counts a reminder outcome: sent, retried, failed or skipped.
func IncReminder(result string) {
	reminders.WithLabelValues(result).Inc()
}
