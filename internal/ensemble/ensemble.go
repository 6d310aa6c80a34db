// Package ensemble implements the C10 ensemble STT coordinator: parallel
// fan-out across registered recognizer adapters with a shared deadline,
// Korean-specific per-engine confidence scoring, and consensus/weighted
// selection of a winning transcript.
package ensemble

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/hangul"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/metrics"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/recognizer"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/router"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/textdist"
	"golang.org/x/sync/errgroup"
)

// ErrAllEnginesFailed is returned when every registered adapter fails or
// returns empty text.
var ErrAllEnginesFailed = errors.New("ensemble: all engines failed")

// Config tunes the coordinator's selection thresholds.
type Config struct {
	Deadline            time.Duration // default 60s
	ConfidenceThreshold float64       // default 0.85
	ConsensusSimilarity float64       // default 0.8
	ConsensusMinGroup   int           // default 2
	RequireConsensus    bool          // forced by the multi_engine_consensus strategy
	MaxConcurrent       int           // default min(len(adapters), 8)
}

// DefaultConfig returns the spec's default coordinator settings.
func DefaultConfig() Config {
	return Config{
		Deadline:            60 * time.Second,
		ConfidenceThreshold: 0.85,
		ConsensusSimilarity: 0.8,
		ConsensusMinGroup:   2,
		MaxConcurrent:       8,
	}
}

// Result is the coordinator's output.
type Result struct {
	Text               string
	Confidence         float64
	SelectedEngine     string
	ConsensusScore     float64
	EngineResults      []model.EngineResult
}

// EngineErrors collects every engine's failure for ErrAllEnginesFailed
// reporting.
type EngineErrors struct {
	ByEngine map[string]error
}

func (e *EngineErrors) Error() string {
	var sb strings.Builder
	sb.WriteString(ErrAllEnginesFailed.Error())
	for id, err := range e.ByEngine {
		sb.WriteString("; ")
		sb.WriteString(id)
		sb.WriteString(": ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

func (e *EngineErrors) Unwrap() error { return ErrAllEnginesFailed }

// Coordinate fans out audio to every adapter registered in reg, scores and
// selects a winner, and returns the EnsembleResult. The per-engine result
// list reflects registration order, not completion order.
func Coordinate(ctx context.Context, reg *router.Router[recognizer.Recognizer], opts recognizer.Options, audio model.AudioBuffer, cfg Config) (Result, error) {
	ids := reg.EnginesOrdered()
	if len(ids) == 0 {
		return Result{}, errors.New("ensemble: no adapters registered")
	}

	deadlineCtx, cancel := recognizer.WithDeadline(ctx, cfg.Deadline)
	defer cancel()

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 || maxConcurrent > len(ids) {
		maxConcurrent = len(ids)
	}
	if maxConcurrent > 8 {
		maxConcurrent = 8
	}

	results := make([]model.EngineResult, len(ids))
	g, gctx := errgroup.WithContext(deadlineCtx)
	g.SetLimit(maxConcurrent)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			adapter, err := reg.Route(id)
			if err != nil {
				return nil
			}
			start := time.Now()
			tr, err := adapter.Recognize(gctx, audio, opts)
			elapsed := time.Since(start)
			metrics.RecognizerDuration.WithLabelValues(id).Observe(elapsed.Seconds())

			if err != nil {
				var recErr *model.RecognizeError
				if errors.As(err, &recErr) {
					results[i] = model.EngineResult{EngineID: id, ProcessingTime: elapsed, Err: recErr}
				} else {
					results[i] = model.EngineResult{EngineID: id, ProcessingTime: elapsed, Err: &model.RecognizeError{Kind: model.ErrTransient, EngineID: id, Message: err.Error()}}
				}
				return nil
			}
			scaled := scoreEngine(id, tr)
			results[i] = model.EngineResult{
				EngineID:         id,
				Text:             tr.Text,
				Confidence:       tr.Confidence,
				ScaledConfidence: scaled,
				ProcessingTime:   elapsed,
				Words:            tr.Words,
			}
			return nil
		})
	}
	_ = g.Wait()

	return selectWinner(results, cfg)
}

// scoreEngine computes the per-engine confidence' formula from spec §4.10:
// 0.4*base_weight + 0.3*raw_confidence + 0.2*korean_text_quality +
// 0.1*(has_word_timestamps ? 0.9 : 0.6).
func scoreEngine(engineID string, tr model.TranscriptionResult) float64 {
	base := recognizer.BaseWeight(engineID)
	korQuality := koreanTextQuality(tr.Text)
	timestampFactor := 0.6
	if len(tr.Words) > 0 {
		timestampFactor = 0.9
	}
	return 0.4*base + 0.3*tr.Confidence + 0.2*korQuality + 0.1*timestampFactor
}

// koreanTextQuality mirrors _evaluate_korean_text_quality: Korean-char
// ratio times a completeness factor, plus a flat 0.3 bonus, capped at 1.0.
func koreanTextQuality(text string) float64 {
	if text == "" {
		return 0
	}
	totalChars := 0
	koreanChars := 0
	for _, r := range text {
		if r == ' ' {
			continue
		}
		totalChars++
		if hangul.IsHangulSyllable(r) {
			koreanChars++
		}
	}
	if totalChars == 0 {
		return 0
	}
	koreanRatio := float64(koreanChars) / float64(totalChars)
	quality := koreanRatio * (float64(koreanChars) / float64(totalChars+1))
	return math.Min(1.0, quality+0.3)
}

func selectWinner(results []model.EngineResult, cfg Config) (Result, error) {
	var successful []model.EngineResult
	for _, r := range results {
		if r.Err == nil && strings.TrimSpace(r.Text) != "" {
			successful = append(successful, r)
		}
	}
	if len(successful) == 0 {
		errs := &EngineErrors{ByEngine: map[string]error{}}
		for _, r := range results {
			if r.Err != nil {
				errs.ByEngine[r.EngineID] = r.Err
			}
		}
		return Result{EngineResults: results}, errs
	}

	if !cfg.RequireConsensus {
		if best, ok := highestAboveThreshold(successful, cfg.ConfidenceThreshold); ok {
			return Result{
				Text: best.Text, Confidence: weightedCombinedConfidence(successful),
				SelectedEngine: best.EngineID, ConsensusScore: 1.0,
				EngineResults: results,
			}, nil
		}
	}

	if consensus, ok := findConsensus(successful, cfg); ok {
		return consensus, nil
	}
	if cfg.RequireConsensus {
		return Result{EngineResults: results}, errors.New("ensemble: consensus required but not reached")
	}

	best := highestScaled(successful)
	return Result{
		Text: best.Text, Confidence: weightedCombinedConfidence(successful) * 0.8,
		SelectedEngine: best.EngineID, ConsensusScore: 0.5,
		EngineResults: results,
	}, nil
}

// weightedCombinedConfidence computes the ensemble's combined confidence per
// spec §4.10 step 4: a weighted average of every successful engine's scaled
// confidence, weighted by confidence squared — Σ(c_i·c_i²)/Σ(c_i²) — so
// high-confidence engines dominate the combined score more than a plain
// mean would let them.
func weightedCombinedConfidence(successful []model.EngineResult) float64 {
	var numerator, denominator float64
	for _, r := range successful {
		c := r.ScaledConfidence
		numerator += c * c * c
		denominator += c * c
	}
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func highestAboveThreshold(results []model.EngineResult, threshold float64) (model.EngineResult, bool) {
	var best model.EngineResult
	found := false
	for _, r := range results {
		if r.ScaledConfidence >= threshold && (!found || r.ScaledConfidence > best.ScaledConfidence) {
			best = r
			found = true
		}
	}
	return best, found
}

func highestScaled(results []model.EngineResult) model.EngineResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.ScaledConfidence > best.ScaledConfidence {
			best = r
		}
	}
	return best
}

// findConsensus clusters successful results by character-level similarity
// (textdist.SimilarityRatio, a Levenshtein ratio, over text with spaces
// removed; punctuation is kept) and returns the highest-confidence
// member of the largest group with >= ConsensusMinGroup members.
func findConsensus(results []model.EngineResult, cfg Config) (Result, bool) {
	type group struct {
		text    string
		members []model.EngineResult
	}
	var groups []group

	for _, r := range results {
		norm := strings.ReplaceAll(strings.TrimSpace(r.Text), " ", "")
		bestIdx := -1
		bestSim := 0.0
		for i, g := range groups {
			sim := textdist.SimilarityRatio(norm, g.text)
			if sim > bestSim && sim >= cfg.ConsensusSimilarity {
				bestSim = sim
				bestIdx = i
			}
		}
		if bestIdx >= 0 {
			groups[bestIdx].members = append(groups[bestIdx].members, r)
		} else {
			groups = append(groups, group{text: norm, members: []model.EngineResult{r}})
		}
	}

	sort.SliceStable(groups, func(i, j int) bool { return len(groups[i].members) > len(groups[j].members) })
	for _, g := range groups {
		if len(g.members) >= cfg.ConsensusMinGroup {
			best := highestScaled(g.members)
			return Result{
				Text:           best.Text,
				Confidence:     weightedCombinedConfidence(results),
				SelectedEngine: "consensus_" + best.EngineID,
				ConsensusScore: float64(len(g.members)) / float64(len(results)),
				EngineResults:  results,
			}, true
		}
	}
	return Result{}, false
}
