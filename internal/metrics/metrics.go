package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kos_chat_http_requests_total",
			Help: "Total gateway HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kos_chat_http_request_duration_seconds",
			Help:    "Gateway HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// Backend REST metrics
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kos_chat_backend_requests_total",
			Help: "Total requests sent to the marketplace backend",
		},
		[]string{"method", "endpoint", "status"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kos_chat_backend_request_duration_seconds",
			Help:    "Marketplace backend request latency",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Realtime transport metrics
	RealtimeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kos_chat_realtime_connected_sessions",
			Help: "STOMP sessions currently connected",
		},
	)

	RealtimeFramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kos_chat_realtime_frames_received_total",
			Help: "STOMP frames received",
		},
		[]string{"command"},
	)

	RealtimeReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kos_chat_realtime_reconnects_total",
			Help: "Reconnect attempts after the fixed reconnect delay",
		},
	)

	RealtimeConnectErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kos_chat_realtime_connect_errors_total",
			Help: "Failed or dropped realtime connections",
		},
	)

	// Business metrics
	MessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kos_chat_messages_published_total",
			Help: "Messages published to the chat destination",
		},
	)

	MessagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kos_chat_messages_appended_total",
			Help: "Live messages appended to open room views",
		},
	)

	SendRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kos_chat_send_rejected_total",
			Help: "Sends rejected before reaching the transport",
		},
		[]string{"reason"}, // "not_connected" or "empty"
	)

	OpenRoomViews = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kos_chat_open_room_views",
			Help: "Room views currently open",
		},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kos_chat_rate_limited_total",
			Help: "Gateway requests rejected by the rate limiter",
		},
	)
)
