package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidr_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slidr_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Sync protocol metrics
	SyncPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidr_sync_published_total",
			Help: "Sync messages accepted for publishing",
		},
		[]string{"transport", "type"},
	)

	SyncDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidr_sync_delivered_total",
			Help: "Sync messages delivered to subscribers",
		},
		[]string{"transport", "type"},
	)

	SyncDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidr_sync_dropped_total",
			Help: "Sync messages dropped",
		},
		[]string{"transport", "reason"},
	)

	WebsocketConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slidr_websocket_connections",
			Help: "Open websocket views",
		},
		[]string{"role"},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slidr_users_registered_total",
			Help: "Total users registered",
		},
	)

	Uploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidr_uploads_total",
			Help: "Presentation uploads by outcome",
		},
		[]string{"status"},
	)

	PagesRendered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slidr_pages_rendered_total",
			Help: "Total PDF pages rendered",
		},
	)

	Reactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidr_reactions_total",
			Help: "Reactions fired by websocket views",
		},
		[]string{"kind"},
	)

	BotRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidr_bot_renders_total",
			Help: "Preview requests by outcome",
		},
		[]string{"outcome"}, // "rendered", "redirect"
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidr_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slidr_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slidr_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)
