// Package metrics provides Prometheus instrumentation for the chatroom
// services: connection and session gauges, message counters and the bot reply
// delay histogram.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Author label values for MessagesTotal.
const (
	AuthorUser = "user"
	AuthorBot  = "bot"
)

// Form label values for DroppedSubmissions.
const (
	FormLogin   = "login"
	FormMessage = "message"
)

var (
	// ConnectionsTotal tracks the current number of active WebSocket connections.
	ConnectionsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatroom_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// LoginsTotal counts successful logins.
	LoginsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatroom_logins_total",
		Help: "Total number of successful logins",
	})

	// LogoutsTotal counts logouts.
	LogoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatroom_logouts_total",
		Help: "Total number of logouts",
	})

	// MessagesTotal counts messages appended to chat logs, labeled by author
	// kind: "user" or "bot".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatroom_messages_total",
		Help: "Total number of messages appended",
	}, []string{"author"})

	// DroppedSubmissions counts blank form submissions that were ignored.
	DroppedSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatroom_dropped_submissions_total",
		Help: "Blank login or message submissions that were ignored",
	}, []string{"form"})

	// PendingReplies tracks bot replies scheduled but not yet appended.
	PendingReplies = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatroom_pending_replies",
		Help: "Bot replies scheduled but not yet delivered",
	})

	// ReplyDelay records the time from a user message to the bot's reply.
	ReplyDelay = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatroom_reply_delay_seconds",
		Help:    "Time from user message to bot reply in seconds",
		Buckets: []float64{.5, .9, 1, 1.05, 1.1, 1.25, 1.5, 2, 5},
	})

	// RateLimited counts connections rejected by the connection rate limit.
	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatroom_rate_limited_total",
		Help: "Connections rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		LoginsTotal,
		LogoutsTotal,
		MessagesTotal,
		DroppedSubmissions,
		PendingReplies,
		ReplyDelay,
		RateLimited,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
