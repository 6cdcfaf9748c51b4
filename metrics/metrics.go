package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// BookingsSubmitted counts bookings created by customers.
	BookingsSubmitted prometheus.Counter

	// BookingsReviewed counts admin reviews by resulting status.
	BookingsReviewed *prometheus.CounterVec

	// MessagesSent counts relay messages by sender (customer, admin).
	MessagesSent *prometheus.CounterVec

	// ChangesDispatched counts change-feed rows handed to subscribers.
	ChangesDispatched *prometheus.CounterVec

	// WebsocketClients is the number of connected realtime clients.
	WebsocketClients prometheus.Gauge

	// HTTPRequestDuration observes handler latency.
	HTTPRequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in
// tests so repeated construction does not collide.
func New(reg *prometheus.Registry, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BookingsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_submitted_total",
			Help:      "Total number of bookings submitted",
		}),
		BookingsReviewed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_reviewed_total",
			Help:      "Total number of booking reviews by resulting status",
		}, []string{"status"}),
		MessagesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of relay messages by sender",
		}, []string{"sender"}),
		ChangesDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_dispatched_total",
			Help:      "Total number of change feed entries dispatched",
		}, []string{"entity", "result"}),
		WebsocketClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Current number of connected realtime clients",
		}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP handler latency",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) IncBookingSubmitted() {
	if m == nil {
		return
	}
	m.BookingsSubmitted.Inc()
}

func (m *Metrics) IncBookingReviewed(status string) {
	if m == nil {
		return
	}
	m.BookingsReviewed.WithLabelValues(status).Inc()
}

func (m *Metrics) IncMessageSent(sender string) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(sender).Inc()
}

func (m *Metrics) IncChangeDispatched(entity string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ChangesDispatched.WithLabelValues(entity, result).Inc()
}

func (m *Metrics) SetWebsocketClients(n int) {
	if m == nil {
		return
	}
	m.WebsocketClients.Set(float64(n))
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
