package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitionsTotal counts processor constructions by the path taken.
	// Labels: "build", "rehydrate_relational", "rehydrate_cache"
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsgraph_transitions_total",
		Help: "Graph processor transitions by type",
	}, []string{"transition"})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fsgraph_build_duration_seconds",
		Help:    "Walk, build and persist duration",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	graphVertices = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fsgraph_graph_vertices",
		Help: "Vertex count of the most recently produced graph",
	})
)
