// Package metrics defines the Prometheus metrics exported by hostgeo.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes.
const (
	OutcomeContent = "content"
	OutcomeNoGeo   = "no_geo"
	OutcomeError   = "error"
	OutcomeStale   = "stale"
)

// Icon outcomes.
const (
	IconSet     = "set"
	IconSkipped = "skipped"
	IconError   = "error"
)

var (
	// Resolutions counts finished resolution requests by source and outcome.
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hostgeo_resolutions_total",
		Help: "Total number of finished resolution requests",
	}, []string{"source", "outcome"})

	// ResolutionDuration observes how long a resolution pipeline ran.
	ResolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hostgeo_resolution_duration_seconds",
		Help:    "Time from issuing a resolution request to its completion",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	// IconUpdates counts background icon pipeline runs by outcome.
	IconUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hostgeo_icon_updates_total",
		Help: "Total number of background icon pipeline runs",
	}, []string{"outcome"})

	// TrackedTabs gauges the number of tabs with a captured connection IP.
	TrackedTabs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hostgeo_tracked_tabs",
		Help: "Number of tabs with a captured connection IP",
	})
)
