// Package controller implements the C12 adaptive pipeline controller: the
// Init -> Preprocess -> Transcribe -> Validate -> (Accept | Reprocess)
// state machine that orchestrates every other component and drives
// quality-triggered re-processing.
package controller

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/align"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/audio"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/cache"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/enhance"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/ensemble"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/formant"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/hangul"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/metrics"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/pitch"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/quality"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/recognizer"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/router"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/telemetry"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/vad"
	"golang.org/x/sync/errgroup"
)

// ErrCancelRequested is returned when ctx is canceled before the pipeline
// completes.
var ErrCancelRequested = errors.New("controller: cancel requested")

// Config bundles every sub-component's configuration plus the controller's
// own retry/threshold knobs.
type Config struct {
	Normalize NormalizeConfigProvider
	Enhance   enhance.Config
	Pitch     pitch.Config
	Formant   formant.Config
	VAD       vad.Config
	Boundary  align.BoundaryConfig
	Ensemble  ensemble.Config

	QualityThreshold    float64
	MaxReprocessAttempts int
	RecognizerOptions   recognizer.Options

	Cache     *cache.Cache     // nil disables caching
	CacheTTL  time.Duration
	Telemetry telemetry.Sink   // nil-safe; telemetry.Nop() if unset
}

// NormalizeConfigProvider avoids importing audio.NormalizeConfig under a
// different name collision; it is exactly that type, aliased here for
// clarity at the controller's public boundary.
type NormalizeConfigProvider = audio.NormalizeConfig

// DefaultConfig returns every sub-component's spec default plus
// max_attempts=3 and quality_threshold=0.95.
func DefaultConfig() Config {
	return Config{
		Normalize:            audio.DefaultNormalizeConfig(),
		Enhance:              enhance.DefaultConfig(),
		Pitch:                pitch.DefaultConfig(),
		Formant:              formant.DefaultConfig(),
		VAD:                  vad.DefaultConfig(),
		Boundary:             align.DefaultBoundaryConfig(),
		Ensemble:             ensemble.DefaultConfig(),
		QualityThreshold:     quality.DefaultThreshold,
		MaxReprocessAttempts: 3,
		CacheTTL:             time.Hour,
		Telemetry:            telemetry.Nop(),
	}
}

// Pipeline runs one analysis+ensemble-STT invocation end to end.
type Pipeline struct {
	registry *router.Router[recognizer.Recognizer]
	cfg      Config
}

// New builds a Pipeline over the given recognizer registry.
func New(registry *router.Router[recognizer.Recognizer], cfg Config) *Pipeline {
	if cfg.Telemetry == nil {
		cfg.Telemetry = telemetry.Nop()
	}
	return &Pipeline{registry: registry, cfg: cfg}
}

// Run executes the Init -> Preprocess -> Transcribe -> Validate ->
// (Accept | Reprocess) state machine against raw input audio, optionally
// validating against targetText (empty means "no reference, skip quality
// gating").
func (p *Pipeline) Run(ctx context.Context, raw model.AudioBuffer, targetText string) (model.PipelineResult, error) {
	runStart := time.Now()
	runID := telemetry.NewRunID()
	p.cfg.Telemetry.StartRun(runID)
	defer func() { p.cfg.Telemetry.EndRun(runID) }()

	metrics.RunsActive.Inc()
	defer metrics.RunsActive.Dec()
	metrics.RunsTotal.Inc()

	if key, ok := p.cacheKey(raw, targetText); ok {
		if entry, hit := p.cfg.Cache.Get(key); hit {
			metrics.CacheHits.Inc()
			return entry, nil
		}
		metrics.CacheMisses.Inc()
	}

	var (
		best        model.PipelineResult
		haveBest    bool
		tried       = map[string]bool{}
		adjustments = map[string]any{}
		sttParams   recognizer.Options = p.cfg.RecognizerOptions
		ensembleCfg ensemble.Config    = p.cfg.Ensemble
		koreanPostprocess bool
	)

	stagesExecuted := []string{"init"}
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return model.PipelineResult{}, ErrCancelRequested
		}

		stageStart := time.Now()
		result, err := p.runOnce(ctx, raw, targetText, adjustments, sttParams, ensembleCfg, koreanPostprocess, runID)
		metrics.StageDuration.WithLabelValues("full_attempt").Observe(time.Since(stageStart).Seconds())
		if err != nil {
			if !haveBest {
				return model.PipelineResult{}, err
			}
			break
		}
		result.StagesExecuted = append(stagesExecuted, "preprocess", "transcribe", "validate")
		result.ReprocessAttempts = attempts

		if !haveBest || result.Quality.Overall > best.Quality.Overall {
			best = result
			haveBest = true
		}

		if targetText == "" || result.Quality.Pass || attempts >= p.cfg.MaxReprocessAttempts {
			if targetText != "" && !result.Quality.Pass {
				best.Warnings = append(best.Warnings, model.Warning{Kind: "QualityBelowThreshold", Message: "best-effort result returned after exhausting reprocess attempts"})
			}
			break
		}

		strategy, ok := selectStrategy(result.Quality.StrategyHint, tried)
		if !ok {
			best.Warnings = append(best.Warnings, model.Warning{Kind: "QualityBelowThreshold", Message: "no untried strategy for hint " + result.Quality.StrategyHint})
			break
		}
		tried[strategy.Name] = true
		applyStrategy(strategy, adjustments, &sttParams, &ensembleCfg, &koreanPostprocess)
		stagesExecuted = append(stagesExecuted, "reprocess:"+strategy.Name)
		attempts++
		metrics.ReprocessAttempts.Observe(float64(attempts))
	}

	best.TotalDuration = time.Since(runStart)
	metrics.E2EDuration.Observe(best.TotalDuration.Seconds())
	metrics.QualityOverall.Observe(best.Quality.Overall)

	if key, ok := p.cacheKey(raw, targetText); ok && (targetText == "" || best.Quality.Pass) {
		p.cfg.Cache.Put(key, best, p.cfg.CacheTTL)
	}
	return best, nil
}

func (p *Pipeline) cacheKey(raw model.AudioBuffer, targetText string) (cache.Key, bool) {
	if p.cfg.Cache == nil {
		return cache.Key{}, false
	}
	return cache.NewKey(raw, targetText, p.cfg.RecognizerOptions.Language), true
}

// runOnce executes exactly one Preprocess -> (feature extraction || ensemble
// transcribe) -> align/segment -> validate pass.
func (p *Pipeline) runOnce(ctx context.Context, raw model.AudioBuffer, targetText string, adjustments map[string]any, opts recognizer.Options, ensembleCfg ensemble.Config, koreanPostprocess bool, runID string) (model.PipelineResult, error) {
	normCfg := p.cfg.Normalize
	normalized, _, err := audio.Normalize(raw, normCfg)
	if err != nil {
		return model.PipelineResult{}, err
	}

	enhanceCfg := p.cfg.Enhance
	applyAudioAdjustments(adjustments, &enhanceCfg)
	enhanced := enhance.Enhance(normalized, enhanceCfg)

	var (
		pitchContour   model.PitchContour
		formantContour model.FormantContour
		voiceStart     float64
		ensembleResult ensemble.Result
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pitchContour = pitch.Analyze(enhanced, p.cfg.Pitch)
		return nil
	})
	g.Go(func() error {
		formantContour = formant.Analyze(enhanced, p.cfg.Formant)
		return nil
	})
	g.Go(func() error {
		voiceStart = vad.DetectVoiceStart(enhanced, p.cfg.VAD, 0, false)
		return nil
	})
	g.Go(func() error {
		r, err := ensemble.Coordinate(gctx, p.registry, opts, enhanced, ensembleCfg)
		ensembleResult = r
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PipelineResult{}, err
	}

	transcript := model.TranscriptionResult{
		Text:       ensembleResult.Text,
		Language:   opts.Language,
		Confidence: ensembleResult.Confidence,
		EngineID:   ensembleResult.SelectedEngine,
	}
	for _, er := range ensembleResult.EngineResults {
		if er.EngineID == ensembleResult.SelectedEngine || "consensus_"+er.EngineID == ensembleResult.SelectedEngine {
			transcript.Words = er.Words
			break
		}
	}
	if koreanPostprocess {
		transcript.Text = postprocessKoreanText(transcript.Text)
	}

	effectiveTarget := targetText
	if effectiveTarget == "" {
		effectiveTarget = transcript.Text
	}

	var segments []model.Syllable
	if len(transcript.Words) > 0 {
		segments = align.AlignSyllables(effectiveTarget, transcript.Words, voiceStart)
	} else {
		labels := hangul.Syllables(effectiveTarget)
		segments = align.SegmentByBoundary(enhanced, pitchContour, labels, p.cfg.Boundary)
	}

	qIn := quality.Input{
		PredictedText:       transcript.Text,
		TargetText:          effectiveTarget,
		AudioDurationSec:    enhanced.Duration().Seconds(),
		PredictedConfidence: transcript.Confidence,
		Threshold:           p.cfg.QualityThreshold,
	}
	qm := quality.Validate(qIn)

	p.cfg.Telemetry.RecordSpan(telemetry.Event{
		RunID: runID, Stage: "validate", Component: "quality",
		Outcome: outcomeOf(qm.Pass),
	})

	return model.PipelineResult{
		FinalText:  transcript.Text,
		Confidence: transcript.Confidence,
		Segments:   segments,
		Pitch:      pitchContour,
		Formants:   formantContour,
		Transcript: transcript,
		Quality:    qm,
	}, nil
}

func outcomeOf(pass bool) string {
	if pass {
		return "pass"
	}
	return "fail"
}

func applyAudioAdjustments(adjustments map[string]any, cfg *enhance.Config) {
	if v, ok := adjustments["noise_beta"].(float64); ok {
		cfg.NoiseBeta = v
	}
	if v, ok := adjustments["eq_band_gain_db"].(float64); ok {
		cfg.EQBandGainDB = v
	}
	if v, ok := adjustments["eq_low_hz"].(float64); ok {
		cfg.EQLowHz = v
	}
	if v, ok := adjustments["eq_high_hz"].(float64); ok {
		cfg.EQHighHz = v
	}
	if v, ok := adjustments["compressor_ratio"].(float64); ok {
		cfg.CompressorRatio = v
	}
}

// applyStrategy merges a reprocessing strategy's adjustments into the
// audio-adjustment map, STT options, ensemble config, and post-processing
// flags for the next attempt.
func applyStrategy(s model.ReprocessingStrategy, adjustments map[string]any, opts *recognizer.Options, ensembleCfg *ensemble.Config, koreanPostprocess *bool) {
	for k, v := range s.AudioAdjustments {
		adjustments[k] = v
	}
	if v, ok := s.STTParameters["temperature"].(float64); ok {
		opts.Temperature = v
	}
	if v, ok := s.STTParameters["beam_size"].(int); ok {
		opts.BeamSize = v
	}
	if v, ok := s.STTParameters["require_consensus"].(bool); ok && v {
		ensembleCfg.RequireConsensus = v
	}
	if v, ok := s.STTParameters["korean_postprocess"].(bool); ok && v {
		*koreanPostprocess = v
	}
}

// postprocessKoreanText strips standalone conjoining jamo (see
// hangul.IsIncompleteJamo) left behind by noisy STT output and collapses
// repeated whitespace, per the
// korean_post_processing reprocessing strategy.
func postprocessKoreanText(text string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range text {
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteRune(r)
			continue
		}
		prevSpace = false
		if hangul.IsIncompleteJamo(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// sortedStrategyNames is used by tests asserting the idempotent total order
// on strategy names.
func sortedStrategyNames() []string {
	reg := allStrategies()
	names := make([]string, 0, len(reg))
	for n := range reg {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
