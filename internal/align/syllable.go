// Package align implements the C8 syllable aligner (recognizer-timestamp
// driven) and the C9 boundary-detection segmenter (energy/pitch fallback).
package align

import (
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/hangul"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

// uniformConfidence is used when a syllable's timing is derived from
// uniform distribution of a word's total duration rather than a more
// precise source.
const uniformConfidence = 0.6

// wordTimestampConfidence is used when a syllable's timing is derived
// directly from recognizer word timestamps.
const wordTimestampConfidence = 0.8

// AlignSyllables maps target text T onto word-level timestamps W, per
// spec §4.8: shift every word by -voiceStart (clamped to zero), distribute
// each word's interval uniformly across its Hangul syllable count, and
// concatenate in word order. Words with no Hangul are skipped; zero-duration
// words are dropped. If the target text's syllable count differs from the
// concatenation length, truncate to the shorter and mark every retained
// syllable with reduced confidence.
func AlignSyllables(targetText string, words []model.WordAlignment, voiceStart float64) []model.Syllable {
	var out []model.Syllable
	for _, w := range words {
		start := w.Start - voiceStart
		if start < 0 {
			start = 0
		}
		end := w.End - voiceStart
		if end < 0 {
			end = 0
		}
		if end <= start {
			continue
		}
		syllables := hangul.Syllables(w.Word)
		if len(syllables) == 0 {
			continue
		}
		step := (end - start) / float64(len(syllables))
		conf := wordTimestampConfidence
		if w.Confidence > 0 {
			conf = w.Confidence
		}
		for i, s := range syllables {
			sStart := start + float64(i)*step
			sEnd := start + float64(i+1)*step
			out = append(out, syllableFromText(s, sStart, sEnd, conf))
		}
	}

	targetSyllables := hangul.Syllables(targetText)
	if len(targetSyllables) > 0 && len(targetSyllables) != len(out) {
		out = reconcileLength(out, targetSyllables)
	}
	return out
}

// reconcileLength truncates aligned to the shorter of len(aligned) and
// len(target), and sets the confidence of every retained syllable to
// uniformConfidence (the spec's tie-break rule for a length mismatch).
func reconcileLength(aligned []model.Syllable, target []string) []model.Syllable {
	n := len(aligned)
	if len(target) < n {
		n = len(target)
	}
	out := aligned[:n]
	for i := range out {
		out[i].Confidence = uniformConfidence
	}
	return out
}

// AlignUniform distributes totalDuration uniformly across the Hangul
// syllables of targetText when no word timestamps are available at all
// (the caller should prefer the boundary segmenter in this case; this
// helper exists for the pure fallback described in spec §4.8 step 4).
func AlignUniform(targetText string, totalDuration float64) []model.Syllable {
	syllables := hangul.Syllables(targetText)
	if len(syllables) == 0 {
		return nil
	}
	step := totalDuration / float64(len(syllables))
	out := make([]model.Syllable, len(syllables))
	for i, s := range syllables {
		out[i] = syllableFromText(s, float64(i)*step, float64(i+1)*step, uniformConfidence)
	}
	return out
}

func syllableFromText(s string, start, end, confidence float64) model.Syllable {
	syl := model.Syllable{Text: s, Start: start, End: end, Confidence: confidence}
	r := []rune(s)
	if len(r) == 1 {
		if d, err := hangul.Decompose(r[0]); err == nil {
			syl.Initial, syl.Medial, syl.Final = d.Initial, d.Medial, d.Final
		}
	}
	return syl
}
