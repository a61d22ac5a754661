package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "delegation_research"

// Metrics holds the Prometheus collectors of one pipeline run.
type Metrics struct {
	ScannedBlocks   prometheus.Counter
	ScannedLogs     prometheus.Counter
	DecodedEvents   *prometheus.CounterVec
	DecodeFailures  prometheus.Counter
	RangeHalvings   prometheus.Counter
	ScanGaps        prometheus.Counter
	RPCCalls        *prometheus.CounterVec
	RPCRetries      prometheus.Counter
	ChunkDuration   prometheus.Histogram
	TracesCompleted *prometheus.CounterVec
	TraceHops       prometheus.Histogram
}

// NewMetrics creates and registers the collectors on the given registerer.
// Pass prometheus.DefaultRegisterer for the usual global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScannedBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scanned_blocks_total",
			Help:      "Blocks covered by completed log scan chunks.",
		}),
		ScannedLogs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scanned_logs_total",
			Help:      "Raw logs returned by eth_getLogs.",
		}),
		DecodedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decoded_events_total",
			Help:      "Decoded protocol events by kind.",
		}, []string{"kind"}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Logs skipped because decoding failed.",
		}),
		RangeHalvings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "range_halvings_total",
			Help:      "Chunk splits forced by provider range limits.",
		}),
		ScanGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_gaps_total",
			Help:      "Sub-ranges abandoned after retries and halvings.",
		}),
		RPCCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "JSON-RPC calls by method.",
		}, []string{"method"}),
		RPCRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_retries_total",
			Help:      "JSON-RPC calls retried after a transient failure.",
		}),
		ChunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_chunk_duration_seconds",
			Help:      "Wall time per completed scan chunk.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		TracesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traces_completed_total",
			Help:      "Flow traces completed by terminal role.",
		}, []string{"role"}),
		TraceHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trace_hops",
			Help:      "Hop count of completed flow traces.",
			Buckets:   prometheus.LinearBuckets(0, 1, 9),
		}),
	}

	reg.MustRegister(
		m.ScannedBlocks,
		m.ScannedLogs,
		m.DecodedEvents,
		m.DecodeFailures,
		m.RangeHalvings,
		m.ScanGaps,
		m.RPCCalls,
		m.RPCRetries,
		m.ChunkDuration,
		m.TracesCompleted,
		m.TraceHops,
	)
	return m
}
