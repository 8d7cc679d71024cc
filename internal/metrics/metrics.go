// Package metrics exposes the pipeline's operational counters via
// Prometheus, grounded in the instrumentation style of the
// ka9q_ubersdr/go-coffee examples (both depend on
// github.com/prometheus/client_golang). Ambient observability: carried
// regardless of the spec's silence on it, the way logging and config are
// (spec.md's only related non-goal is "no discovery protocol").
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PacketsReceived counts Payloads successfully read off the digitizer
	// socket (spec §4.1).
	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sdrhost",
		Subsystem: "receiver",
		Name:      "packets_received_total",
		Help:      "Payloads read from the digitizer UDP socket.",
	})

	// PacketsDropped counts synthesized placeholder payloads emitted for
	// missing sequence numbers (spec §4.1 step 2, §8 invariant).
	PacketsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sdrhost",
		Subsystem: "receiver",
		Name:      "packets_dropped_total",
		Help:      "Placeholder payloads synthesized for dropped packet counters.",
	})

	// SessionRestarts counts pkt_cnt==0 restarts observed mid-stream.
	SessionRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sdrhost",
		Subsystem: "receiver",
		Name:      "session_restarts_total",
		Help:      "Digitizer session restarts detected via pkt_cnt wraparound to 0.",
	})

	// QueueDepth reports the occupancy of a named pipeline channel. Only
	// the Receiver samples it, for its output channel (label
	// "receiver_out"), each time it prints a status line.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sdrhost",
		Name:      "queue_depth",
		Help:      "Current occupancy of a bounded inter-stage channel.",
	}, []string{"stage"})

	// PoolGrowth counts allocations beyond what was already free in a
	// named pool (spec §4.2: "allocate and log a growth event").
	PoolGrowth = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdrhost",
		Name:      "pool_growth_total",
		Help:      "Object pool allocations beyond the recycled free list.",
	}, []string{"pool"})

	// DSPOutputDiscarded counts DSP emissions dropped because the outbound
	// channel was full (spec §4.3/§4.4 failure policy).
	DSPOutputDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdrhost",
		Name:      "dsp_output_discarded_total",
		Help:      "DSP stage emissions dropped due to a full outbound channel.",
	}, []string{"stage"})

	// FramesCaptured counts frames written to a rolling or windowed pcap
	// dump by internal/capture.
	FramesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdrhost",
		Subsystem: "capture",
		Name:      "frames_written_total",
		Help:      "Frames written to a capture dump file.",
	}, []string{"dump"})
)

// Serve runs a debug HTTP listener exposing /metrics. It blocks until
// the listener fails and returns that error, so callers run it on its
// own goroutine (mirrors the teacher's fire-and-forget status goroutines).
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
