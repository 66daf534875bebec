package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ometiff_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ometiff_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Slide registry metrics
	slidesOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ometiff_slides_open",
			Help: "Number of currently open slides",
		},
	)

	// Region rendering metrics
	regionReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ometiff_region_reads_total",
			Help: "Total number of region reads",
		},
		[]string{"status"}, // status: ok, error
	)

	regionReadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ometiff_region_read_duration_seconds",
			Help:    "Region read and encode duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"kind"}, // kind: region, thumbnail, tile
	)

	regionPixels = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ometiff_region_pixels",
			Help:    "Number of pixels per rendered region",
			Buckets: []float64{1 << 10, 1 << 14, 1 << 16, 1 << 18, 1 << 20, 1 << 22, 1 << 24},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ometiff_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ometiff_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
