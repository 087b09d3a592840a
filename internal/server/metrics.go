package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polyglot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Detection metrics
	detectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_detections_total",
			Help: "Total number of heuristic detections by tier and language",
		},
		[]string{"tier", "language"},
	)

	resolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_resolutions_total",
			Help: "Total number of source language resolutions by method and outcome",
		},
		[]string{"method", "outcome"}, // outcome: resolved, ambiguous, error
	)

	// Translation metrics
	translationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_translations_total",
			Help: "Total number of translation requests",
		},
		[]string{"type", "status"}, // type: http, conversation, websocket
	)

	translationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polyglot_translation_duration_seconds",
			Help:    "Translation duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)

	textLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polyglot_text_length_chars",
			Help:    "Length of submitted text in characters",
			Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
		[]string{"type"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, chars
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polyglot_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)

	liveStaleResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polyglot_live_stale_results_total",
			Help: "Live translation results discarded because newer input arrived",
		},
	)
)
