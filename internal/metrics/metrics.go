package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chirp_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chirp_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chirp_db_query_duration_seconds",
			Help:    "Duration of Postgres queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chirp_db_query_errors_total",
			Help: "Total number of failed Postgres queries",
		},
		[]string{"command"},
	)

	PostsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chirp_posts_created_total",
			Help: "Total number of posts persisted",
		},
	)

	// RateLimitDecisions is labelled allowed, denied or error.
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chirp_ratelimit_decisions_total",
			Help: "Post creation rate limit decisions",
		},
		[]string{"result"},
	)

	FeedSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chirp_feed_subscribers",
			Help: "Current number of live feed websocket clients",
		},
	)
)

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveQuery records one database round trip. tag is the command tag
// reported by Postgres ("SELECT 3", "INSERT 0 1"); only the verb is kept.
func ObserveQuery(tag string, d time.Duration, err error) {
	command := "unknown"
	if fields := strings.Fields(tag); len(fields) > 0 {
		command = strings.ToLower(fields[0])
	}
	DBQueryDuration.WithLabelValues(command).Observe(d.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(command).Inc()
	}
}

func RateLimitDecision(result string) {
	RateLimitDecisions.WithLabelValues(result).Inc()
}
