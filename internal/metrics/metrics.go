// Package metrics defines all Prometheus metrics for raddaemon.
// All metrics use the "radiusd_" prefix.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "radiusd"

// --- Packet metrics (client + server) ---

var (
	// PacketsReceived counts RADIUS packets received, by code and role (client/server).
	PacketsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_received_total",
		Help:      "Total RADIUS packets received, by code and role.",
	}, []string{"role", "code"})

	// PacketsSent counts RADIUS packets sent, by code and role.
	PacketsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packets_sent_total",
		Help:      "Total RADIUS packets sent, by code and role.",
	}, []string{"role", "code"})

	// PacketErrors counts packet processing errors, by role and error kind.
	PacketErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "packet_errors_total",
		Help:      "Total packet processing errors, by role and kind.",
	}, []string{"role", "kind"})

	// PacketProcessingDuration tracks server-side packet handling latency.
	PacketProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "packet_processing_duration_seconds",
		Help:      "RADIUS packet processing duration in seconds.",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	}, []string{"code"})
)

// --- Client transport pool metrics ---

var (
	// RequestsInFlight is a gauge of pending client requests.
	RequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "client_requests_in_flight",
		Help:      "Number of client authentication requests currently pending.",
	})

	// IdentifiersInUse is a gauge of allocated identifier slots across all sockets.
	IdentifiersInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "client_identifiers_in_use",
		Help:      "Number of identifier slots currently allocated across all client sockets.",
	})

	// IdentifierExhausted counts Exhausted outcomes.
	IdentifierExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_identifier_exhausted_total",
		Help:      "Total Authenticate calls that failed immediately with Exhausted.",
	})

	// Retransmits counts retransmission attempts across all requests.
	Retransmits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_retransmits_total",
		Help:      "Total retransmission attempts across all in-flight requests.",
	})

	// Failovers counts server rotations performed on retransmission.
	Failovers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_failovers_total",
		Help:      "Total times a retry targeted a different server than the previous attempt.",
	})

	// AuthenticateResults counts terminal Authenticate outcomes by kind.
	AuthenticateResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "client_authenticate_results_total",
		Help:      "Total Authenticate outcomes, by result kind.",
	}, []string{"result"})
)

// --- Server dispatcher / NAS registry metrics ---

var (
	// AuthResults counts server-side authentication outcomes.
	AuthResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "server_auth_results_total",
		Help:      "Total server-side authentication results, by realm and outcome.",
	}, []string{"realm", "outcome"})

	// CallbackDuration tracks authenticate-callback latency.
	CallbackDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "server_callback_duration_seconds",
		Help:      "Authentication callback execution duration in seconds.",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	})

	// UnknownNas counts requests dropped for lacking a matching NAS entry.
	UnknownNas = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "server_unknown_nas_total",
		Help:      "Total requests dropped because the source IP matched no NAS entry.",
	})

	// NasRegistrySize is a gauge of configured NAS entries.
	NasRegistrySize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "server_nas_registry_size",
		Help:      "Number of NAS entries currently registered.",
	})

	// NasDNSRefreshes counts DNS refresh sweeps, by result.
	NasDNSRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "server_nas_dns_refresh_total",
		Help:      "Total NAS hostname DNS refresh attempts, by result.",
	}, []string{"result"})
)

// --- Diagnostic log sink metrics ---

var (
	// LogEntriesEmitted counts log entries the sink has written to its logger, by kind.
	LogEntriesEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "log_entries_total",
		Help:      "Total diagnostic log entries emitted, by entry kind.",
	}, []string{"kind"})

	// LogEntriesDropped counts log entries dropped because the sink's buffer was full.
	LogEntriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "log_entries_dropped_total",
		Help:      "Total diagnostic log entries dropped due to a full sink buffer.",
	})
)
