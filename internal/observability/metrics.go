package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "matches_total", Help: "Ride requests successfully matched to a driver"})
	NoDriverTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "no_driver_total", Help: "Ride requests rejected because no driver was available"})
	TripsStarted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "trips_started_total", Help: "Trips started after the pickup proximity gate passed"})
	TripsFinished = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_hailing", Name: "trips_finished_total", Help: "Trips finished and billed"})
	DriversOnline = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "ride_hailing", Name: "drivers_available", Help: "Drivers currently flagged available"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "ride_hailing", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ride_hailing",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
