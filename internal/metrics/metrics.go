// Package metrics exposes the SRP core's Prometheus gauges/counters, the
// domain-stack wiring documented in SPEC_FULL.md §B: the closest repos in
// the retrieval pack that run a protocol/bridge control plane
// (USA-RedDragon-DMRHub, snapetech-plexTuner) expose exactly this kind of
// per-port/per-table gauge via github.com/prometheus/client_golang.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PortBandwidthBps mirrors port_bandwidth[p] from the Bandwidth
	// Accountant (spec.md §4.2).
	PortBandwidthBps = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "avbsrp",
		Subsystem: "bandwidth",
		Name:      "port_bits_per_second",
		Help:      "Current reserved shaper bandwidth per port, in bits per second.",
	}, []string{"port"})

	// ReservedStreams tracks occupied Reservation Table slots (spec.md
	// §4.1).
	ReservedStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "avbsrp",
		Subsystem: "reservation",
		Name:      "streams_reserved",
		Help:      "Number of occupied slots in the stream reservation table.",
	})

	// ReservationFailuresTotal counts transitions into Asking-Failed
	// state (wrong SR class, explicit Talker Failed) per spec.md §7.
	ReservationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "avbsrp",
		Subsystem: "reservation",
		Name:      "failures_total",
		Help:      "Count of reservations that transitioned to Asking Failed.",
	})
)

// Registry is a dedicated registry so embedding applications can choose
// whether to merge it into prometheus.DefaultRegisterer.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(PortBandwidthBps, ReservedStreams, ReservationFailuresTotal)
}
