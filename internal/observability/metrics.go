package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flowmap"

// Metrics holds the Prometheus counters, histograms, and gauges for a flow map session.
type Metrics struct {
	ActionsDispatched *prometheus.CounterVec // labels: type
	DerivationCache   *prometheus.CounterVec // labels: selector, result={hit,miss}
	DatasetLoaded     prometheus.Gauge

	// Clustering metrics.
	ClusterBuilds        *prometheus.CounterVec // labels: mode={sync,background}, outcome={published,superseded}
	ClusterBuildDuration prometheus.Histogram

	// Interaction metrics.
	DebounceCancelled *prometheus.CounterVec // labels: channel={highlight,tooltip}
	AnimationRunning  prometheus.Gauge

	// Data diagnostics.
	InvalidLocations prometheus.Gauge
	UnknownLocations prometheus.Gauge
	OmittedFlows     prometheus.Gauge

	// Shareable state sync.
	StateSyncWrites *prometheus.CounterVec // labels: sink
	StateSyncErrors *prometheus.CounterVec // labels: sink

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={reverse}
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all session metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can create as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ActionsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_dispatched_total",
			Help:      "Actions applied to the state store by type.",
		}, []string{"type"}),
		DerivationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "derivation_cache_total",
			Help:      "Derivation cache lookups by selector and result.",
		}, []string{"selector", "result"}),
		DatasetLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_loaded",
			Help:      "1 when locations and flows are loaded, 0 otherwise.",
		}),
		ClusterBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_builds_total",
			Help:      "Cluster index builds by mode and outcome.",
		}, []string{"mode", "outcome"}),
		ClusterBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cluster_build_duration_seconds",
			Help:      "Duration of a cluster index build.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		DebounceCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debounce_cancelled_total",
			Help:      "Pending delayed dispatches cancelled before firing, by channel.",
		}, []string{"channel"}),
		AnimationRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "animation_running",
			Help:      "1 while the flow animation clock is subscribed to ticks.",
		}),
		InvalidLocations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "invalid_locations",
			Help:      "Locations with invalid coordinates in the loaded dataset.",
		}),
		UnknownLocations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unknown_locations",
			Help:      "Location ids referenced by flows but missing from the locations sheet.",
		}),
		OmittedFlows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "omitted_flows",
			Help:      "Flows excluded because an endpoint is unknown or invalid.",
		}),
		StateSyncWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_sync_writes_total",
			Help:      "Shareable state strings written, by sink.",
		}, []string{"sink"}),
		StateSyncErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_sync_errors_total",
			Help:      "Failed shareable state writes, by sink.",
		}, []string{"sink"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when location naming by reverse geocoding is enabled, 0 otherwise.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ActionsDispatched,
		m.DerivationCache,
		m.DatasetLoaded,
		m.ClusterBuilds,
		m.ClusterBuildDuration,
		m.DebounceCancelled,
		m.AnimationRunning,
		m.InvalidLocations,
		m.UnknownLocations,
		m.OmittedFlows,
		m.StateSyncWrites,
		m.StateSyncErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	}
}
