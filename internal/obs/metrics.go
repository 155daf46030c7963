package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flexstaff_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexstaff_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flexstaff_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexstaff_settlements_total",
			Help: "Settlement attempts by outcome.",
		},
		[]string{"outcome"},
	)

	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexstaff_webhook_events_total",
			Help: "Processor webhook events by type and result.",
		},
		[]string{"type", "result"},
	)

	capacityRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flexstaff_capacity_rejections_total",
		Help: "Applications or acceptances refused because the shift was full.",
	})

	bookingConflictsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "flexstaff_booking_conflicts_total",
		Help: "Availability bookings refused because the slot was taken.",
	})
)

// Init registers every collector on the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight,
			httpRequestsTotal,
			httpRequestDuration,
			settlementsTotal,
			webhookEventsTotal,
			capacityRejectionsTotal,
			bookingConflictsTotal,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// GinMiddleware records request count, latency and in-flight gauge. The path
// label is the route template so ids do not explode cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	}
}

func SettlementOutcome(outcome string) {
	settlementsTotal.WithLabelValues(outcome).Inc()
}

func WebhookEvent(eventType, result string) {
	webhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

func CapacityRejected() {
	capacityRejectionsTotal.Inc()
}

func BookingConflict() {
	bookingConflictsTotal.Inc()
}
