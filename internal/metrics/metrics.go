package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "booking_client"

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Count of API requests by endpoint and outcome.",
		},
		[]string{"endpoint", "status"},
	)

	tokenRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Count of access token refresh attempts by result.",
		},
		[]string{"result"},
	)

	forcedLogout = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forced_logout_total",
			Help:      "Count of sessions cleared after an unrecoverable 401.",
		},
	)

	bookingSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_submitted_total",
			Help:      "Count of booking submissions by result.",
		},
		[]string{"result"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled by the user.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, tokenRefresh, forcedLogout, bookingSubmitted, bookingCancelled)
	})
}

func IncAPIRequest(endpoint, status string) {
	apiRequests.WithLabelValues(endpoint, status).Inc()
}

func IncTokenRefresh(result string) {
	tokenRefresh.WithLabelValues(result).Inc()
}

func IncForcedLogout() {
	forcedLogout.Inc()
}

func IncBookingSubmitted(result string) {
	bookingSubmitted.WithLabelValues(result).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}
