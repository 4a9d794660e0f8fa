// Package metrics provides Prometheus-based instrumentation for scenario runs.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Recorder records scenario-level metrics.
type Recorder struct {
	turnsTotal     *prometheus.CounterVec
	verdictsTotal  *prometheus.CounterVec
	toolCallsTotal *prometheus.CounterVec
	turnDuration   *prometheus.HistogramVec
	runsTotal      *prometheus.CounterVec
}

// NewRecorder creates a recorder registered on the default registry.
func NewRecorder() *Recorder {
	return &Recorder{
		turnsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fellowship_turns_total",
				Help: "Total number of agent turns taken, by scenario and speaker",
			},
			[]string{"scenario", "speaker"},
		),
		verdictsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fellowship_verdicts_total",
				Help: "Total number of classified verdicts, by scheme and verdict",
			},
			[]string{"scheme", "verdict"},
		),
		toolCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fellowship_tool_calls_total",
				Help: "Total number of tool invocations observed during turns",
			},
			[]string{"tool"},
		),
		turnDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fellowship_turn_duration_seconds",
				Help:    "Duration of agent turns in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scenario", "speaker"},
		),
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fellowship_runs_total",
				Help: "Total number of scenario runs, by scenario and terminal outcome",
			},
			[]string{"scenario", "outcome"},
		),
	}
}

//nolint:gochecknoglobals // Single process-wide recorder on the default registry
var (
	defaultRecorder *Recorder
	once            sync.Once
)

// Default returns the process-wide recorder, creating it on first use.
func Default() *Recorder {
	once.Do(func() {
		defaultRecorder = NewRecorder()
	})
	return defaultRecorder
}

// RecordTurn records one completed agent turn and its duration.
func (r *Recorder) RecordTurn(scenario, speaker string, duration time.Duration) {
	r.turnsTotal.WithLabelValues(scenario, speaker).Inc()
	r.turnDuration.WithLabelValues(scenario, speaker).Observe(duration.Seconds())
}

// RecordVerdict records one classification outcome.
func (r *Recorder) RecordVerdict(scheme, verdict string) {
	r.verdictsTotal.WithLabelValues(scheme, verdict).Inc()
}

// RecordToolCall records one observed tool invocation.
func (r *Recorder) RecordToolCall(tool string) {
	r.toolCallsTotal.WithLabelValues(tool).Inc()
}

// RecordRun records the terminal outcome of one scenario run.
func (r *Recorder) RecordRun(scenario, outcome string) {
	r.runsTotal.WithLabelValues(scenario, outcome).Inc()
}

// Serve exposes /metrics on the given address. It blocks, so callers run it
// in a goroutine; errors other than server-closed are returned.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server failed: %w", err)
	}
	return nil
}

// DumpText writes the current metric families in the Prometheus text format.
// Used for an end-of-run summary when no scrape endpoint is configured.
func DumpText(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return fmt.Errorf("failed to encode metric family: %w", err)
		}
	}
	return nil
}
