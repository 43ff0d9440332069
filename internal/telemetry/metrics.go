// Package telemetry defines the Prometheus metrics the Sync Engine
// publishes via promauto. An Engine here is not a process-wide singleton
// (many run concurrently in tests), so metrics are registered against a
// Registerer supplied per Engine rather than promauto's default global
// registry.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for AdvertisementsDropped.
const (
	DropReasonMalformed        = "malformed"
	DropReasonMismatchedSender = "mismatched_sender"
	DropReasonUnparseableCIDR  = "unparseable_cidr"
)

// Metrics is the set of counters and gauges one Engine instance publishes.
type Metrics struct {
	AdvertisementsSent     prometheus.Counter
	AdvertisementsReceived prometheus.Counter
	AdvertisementsDropped  *prometheus.CounterVec

	RouteTableSize  prometheus.Gauge
	RemoteViewCount prometheus.Gauge
	Version         prometheus.Gauge
}

// New registers and returns a fresh Metrics set against reg. Passing
// prometheus.NewRegistry() isolates an Engine's metrics (tests, and
// cmd/routed, which serves its own registry at /metrics); passing
// prometheus.DefaultRegisterer registers them in the process-wide default
// registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		AdvertisementsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "meshroute_advertisements_sent_total",
			Help: "Total number of advertisements successfully handed to the peer interface.",
		}),
		AdvertisementsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "meshroute_advertisements_received_total",
			Help: "Total number of advertisements accepted by ingress.",
		}),
		AdvertisementsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "meshroute_advertisements_dropped_total",
			Help: "Total number of advertisements or advertisement fields dropped, by reason.",
		}, []string{"reason"}),
		RouteTableSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "meshroute_route_table_size",
			Help: "Number of destinations currently in the route table.",
		}),
		RemoteViewCount: f.NewGauge(prometheus.GaugeOpts{
			Name: "meshroute_remote_view_count",
			Help: "Number of directly-connected peers with a live remote view.",
		}),
		Version: f.NewGauge(prometheus.GaugeOpts{
			Name: "meshroute_version",
			Help: "Current value of the route table's version monotone counter.",
		}),
	}
}
