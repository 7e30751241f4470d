package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docgraph_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	ModulesAdded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docgraph_modules_added_total",
		Help: "Total number of modules discovered, by origin.",
	}, []string{"origin"})

	ModulesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docgraph_modules_processed_total",
		Help: "Total number of modules fully processed.",
	})

	ObjectsRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "docgraph_objects_total",
		Help: "Total number of objects in the tree index.",
	})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docgraph_pass_seconds",
		Help:    "Time spent in a post-processing pass.",
		Buckets: prometheus.DefBuckets,
	}, []string{"pass"})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docgraph_diagnostics_total",
		Help: "Total number of diagnostics emitted, by severity.",
	}, []string{"severity"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docgraph_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docgraph_rebuilds_total",
		Help: "Total number of tree rebuilds triggered by file changes.",
	})
)
