// Package metrics exposes Prometheus counters/gauges for the schema
// loader, frame parser, and frame builder, plus a small HTTP server
// publishing them alongside a readiness probe. Re-themed from the
// teacher's CAN/hub counters to the wire codec's own hot paths.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-mavcodec/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_parsed_total",
		Help: "Total frames successfully validated and dispatched by the parser.",
	})
	ChecksumFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checksum_failures_total",
		Help: "Total frames rejected due to a CRC mismatch (includes unknown message ids).",
	})
	SequenceGaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sequence_gaps_total",
		Help: "Total sequence_error diagnostics emitted by the parser.",
	})
	ResyncBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resync_bytes_discarded_total",
		Help: "Total bytes discarded while scanning for the start sentinel.",
	})
	FramesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frames_built_total",
		Help: "Total built frames successfully written to the serial port.",
	})
	SchemaLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schema_loads_total",
		Help: "Total definition documents compiled by successful schema loads.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrSchemaLoad     = "schema_load"
	ErrSerialRead     = "serial_read"
	ErrSerialWrite    = "serial_write"
	ErrSerialOverflow = "serial_overflow"
	ErrBuild          = "build"
)

// StartHTTP serves Prometheus metrics at /metrics and a readiness
// probe at /ready on addr.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for cheap periodic logging without
// scraping Prometheus in-process.
var (
	localFramesParsed     uint64
	localChecksumFailures uint64
	localSequenceGaps     uint64
	localResyncBytes      uint64
	localFramesBuilt      uint64
	localSchemaLoads      uint64
	localErrors           uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	FramesParsed     uint64
	ChecksumFailures uint64
	SequenceGaps     uint64
	ResyncBytes      uint64
	FramesBuilt      uint64
	SchemaLoads      uint64
	Errors           uint64
}

// Snap returns the current local counter values.
func Snap() Snapshot {
	return Snapshot{
		FramesParsed:     atomic.LoadUint64(&localFramesParsed),
		ChecksumFailures: atomic.LoadUint64(&localChecksumFailures),
		SequenceGaps:     atomic.LoadUint64(&localSequenceGaps),
		ResyncBytes:      atomic.LoadUint64(&localResyncBytes),
		FramesBuilt:      atomic.LoadUint64(&localFramesBuilt),
		SchemaLoads:      atomic.LoadUint64(&localSchemaLoads),
		Errors:           atomic.LoadUint64(&localErrors),
	}
}

func IncFramesParsed() {
	FramesParsed.Inc()
	atomic.AddUint64(&localFramesParsed, 1)
}

func IncChecksumFail() {
	ChecksumFailures.Inc()
	atomic.AddUint64(&localChecksumFailures, 1)
}

func IncSequenceGap() {
	SequenceGaps.Inc()
	atomic.AddUint64(&localSequenceGaps, 1)
}

func AddResyncBytes(n int) {
	if n <= 0 {
		return
	}
	ResyncBytes.Add(float64(n))
	atomic.AddUint64(&localResyncBytes, uint64(n))
}

func IncFramesBuilt() {
	FramesBuilt.Inc()
	atomic.AddUint64(&localFramesBuilt, 1)
}

func IncSchemaLoad() {
	SchemaLoads.Inc()
	atomic.AddUint64(&localSchemaLoads, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (call once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrSchemaLoad, ErrSerialRead, ErrSerialWrite, ErrSerialOverflow, ErrBuild} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
