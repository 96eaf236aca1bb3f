package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_orders_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "table_orders_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "table_orders_order_operations_total",
			Help: "Total number of order operations",
		},
		[]string{"operation", "status"},
	)

	notificationsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "table_orders_notifications_sent_total",
			Help: "Total number of order notifications delivered",
		},
	)

	activeFeeds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "table_orders_active_feeds",
			Help: "Number of live order feed subscriptions",
		},
	)
)

// Middleware collects request counts and latencies per route
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()

		httpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)
	}
}

// RecordOrderOperation records the outcome of an order operation
func RecordOrderOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	orderOperations.WithLabelValues(operation, status).Inc()
}

// RecordNotificationSent records a delivered notification
func RecordNotificationSent() {
	notificationsSent.Inc()
}

// FeedOpened records a new live feed subscription
func FeedOpened() {
	activeFeeds.Inc()
}

// FeedClosed records a closed live feed subscription
func FeedClosed() {
	activeFeeds.Dec()
}
