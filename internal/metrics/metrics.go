// Package metrics exposes the Prometheus instrumentation for the pipeline:
// per-stage timings, ensemble engine outcomes, reprocess attempts, and
// cache hit/miss counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tonebridge_runs_active",
		Help: "Currently active pipeline runs",
	})

	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonebridge_runs_total",
		Help: "Total pipeline runs started",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tonebridge_stage_duration_seconds",
		Help:    "Per-stage latency by stage label (the controller records one full_attempt stage per attempt)",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"stage"})

	E2EDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tonebridge_e2e_duration_seconds",
		Help:    "End-to-end pipeline run latency, including reprocess attempts",
		Buckets: []float64{0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0, 20.0},
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tonebridge_errors_total",
		Help: "Error counts by stage and error kind",
	}, []string{"stage", "error_type"})

	AudioChunksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonebridge_audio_chunks_processed_total",
		Help: "Total live-capture audio chunks received",
	})

	VoiceSegmentsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonebridge_vad_segments_total",
		Help: "Utterance segments detected by the streaming VAD",
	})

	RecognizerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tonebridge_recognizer_errors_total",
		Help: "Recognizer adapter errors by engine id and error kind",
	}, []string{"engine_id", "error_type"})

	RecognizerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tonebridge_recognizer_duration_seconds",
		Help:    "Per-engine recognizer call latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 20.0, 60.0},
	}, []string{"engine_id"})

	EnsembleWins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tonebridge_ensemble_wins_total",
		Help: "Times each engine's result was selected as the ensemble winner",
	}, []string{"engine_id"})

	ReprocessAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tonebridge_reprocess_attempts",
		Help:    "Number of reprocess attempts per pipeline run",
		Buckets: []float64{0, 1, 2, 3},
	})

	QualityOverall = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tonebridge_quality_overall",
		Help:    "Composite quality score of the best result of each uncached pipeline run",
		Buckets: []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99, 1.0},
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonebridge_cache_hits_total",
		Help: "Result cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tonebridge_cache_misses_total",
		Help: "Result cache misses",
	})
)
