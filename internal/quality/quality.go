// Package quality implements the C11 quality validator: syllable accuracy,
// phonetic (jamo) similarity, duration alignment, Korean text quality, and
// the composite weighted score that drives the adaptive controller's
// reprocessing loop.
package quality

import (
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/hangul"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/textdist"
)

// Weights are the fixed composite-score weights from spec §4.11.
const (
	WeightSyllableAccuracy = 0.35
	WeightPhoneticSimilarity = 0.25
	WeightConfidence       = 0.20
	WeightDurationAlignment = 0.10
	WeightKoreanTextQuality = 0.10

	// syllableDurationPriorSec is the Korean syllable-duration prior used
	// by the duration-alignment formula.
	syllableDurationPriorSec = 0.3

	// phoneticValidityDefault is the hardcoded phonetic-validity factor
	// folded into korean_text_quality (source never computes this from the
	// audio; it's a fixed constant).
	phoneticValidityDefault = 0.9
)

// DefaultThreshold is the spec's default pass threshold for the composite
// score.
const DefaultThreshold = 0.95

// Input bundles everything the validator needs for one assessment.
type Input struct {
	PredictedText       string
	TargetText          string
	AudioDurationSec    float64
	PredictedConfidence float64
	Threshold           float64 // 0 means DefaultThreshold
}

// Validate computes the full QualityMetrics for one predicted/target pair.
func Validate(in Input) model.QualityMetrics {
	threshold := in.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	syllAcc := syllableAccuracy(in.PredictedText, in.TargetText)
	phonSim := phoneticSimilarity(in.PredictedText, in.TargetText)
	durAlign := durationAlignment(in.AudioDurationSec, in.TargetText)
	korQuality := koreanTextQuality(in.PredictedText)

	overall := WeightSyllableAccuracy*syllAcc +
		WeightPhoneticSimilarity*phonSim +
		WeightConfidence*in.PredictedConfidence +
		WeightDurationAlignment*durAlign +
		WeightKoreanTextQuality*korQuality

	m := model.QualityMetrics{
		SyllableAccuracy:   syllAcc,
		PhoneticSimilarity: phonSim,
		ConfidenceScore:    in.PredictedConfidence,
		DurationAlignment:  durAlign,
		KoreanTextQuality:  korQuality,
		Overall:            clamp01(overall),
	}
	m.Pass = m.Overall >= threshold
	m.StrategyHint = strategyHint(m)
	return m
}

// syllableAccuracy is 1 - edit_distance(syllables(pred), syllables(target))
// / max(1, |target syllables|), clamped to [0,1].
func syllableAccuracy(predicted, target string) float64 {
	predSyl := hangul.Syllables(predicted)
	targetSyl := hangul.Syllables(target)
	denom := len(targetSyl)
	if denom < 1 {
		denom = 1
	}
	dist := textdist.EditDistance(predSyl, targetSyl)
	return clamp01(1.0 - float64(dist)/float64(denom))
}

// phoneticSimilarity is the same formula over jamo sequences.
func phoneticSimilarity(predicted, target string) float64 {
	predJamo := hangul.JamoSequence(predicted)
	targetJamo := hangul.JamoSequence(target)
	denom := len(targetJamo)
	if denom < 1 {
		denom = 1
	}
	dist := textdist.EditDistance(predJamo, targetJamo)
	return clamp01(1.0 - float64(dist)/float64(denom))
}

// durationAlignment compares actual audio duration to the expected
// duration implied by the Korean syllable-duration prior.
func durationAlignment(actualSec float64, target string) float64 {
	targetSyllables := len(hangul.Syllables(target))
	if targetSyllables == 0 {
		return 1.0
	}
	expected := float64(targetSyllables) * syllableDurationPriorSec
	if actualSec <= 0 || expected <= 0 {
		return 0
	}
	return clamp01(minF(actualSec, expected) / maxF(actualSec, expected))
}

// koreanTextQuality averages Hangul-char ratio, 1-incomplete-jamo-ratio,
// and a fixed phonetic-validity default.
func koreanTextQuality(text string) float64 {
	if text == "" {
		return 0
	}
	korRatio := hangul.KoreanRatio(text)
	incompleteRatio := incompleteJamoRatio(text)
	return clamp01((korRatio + (1 - incompleteRatio) + phoneticValidityDefault) / 3.0)
}

func incompleteJamoRatio(text string) float64 {
	total := 0
	incomplete := 0
	for _, r := range text {
		if r == ' ' {
			continue
		}
		total++
		if hangul.IsIncompleteJamo(r) {
			incomplete++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(incomplete) / float64(total)
}

// strategyHint names the factor that most dragged the composite down,
// which the adaptive controller (C12) uses to pick its next strategy.
func strategyHint(m model.QualityMetrics) string {
	if m.Pass {
		return ""
	}
	lowest := "syllable_accuracy"
	lowestVal := m.SyllableAccuracy
	if m.PhoneticSimilarity < lowestVal {
		lowest, lowestVal = "phonetic_similarity", m.PhoneticSimilarity
	}
	if m.ConfidenceScore < lowestVal {
		lowest, lowestVal = "confidence_score", m.ConfidenceScore
	}
	if m.DurationAlignment < lowestVal {
		lowest, lowestVal = "duration_alignment", m.DurationAlignment
	}
	if m.KoreanTextQuality < lowestVal {
		lowest = "korean_text_quality"
	}
	return lowest
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
