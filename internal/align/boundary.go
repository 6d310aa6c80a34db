package align

import (
	"math"
	"sort"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/dsp"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

// BoundaryConfig parameterizes the C9 fallback segmenter.
type BoundaryConfig struct {
	IntensityStepMS float64 // default 10ms
	EnergyPercentile float64 // default 0.70
	SemitoneThreshold float64 // default 1.0
	ValidSpeechRatio  float64 // threshold = ratio * mean(intensity>0), default 0.25
}

// DefaultBoundaryConfig returns the spec's default boundary-detector
// settings.
func DefaultBoundaryConfig() BoundaryConfig {
	return BoundaryConfig{
		IntensityStepMS:   10,
		EnergyPercentile:  0.70,
		SemitoneThreshold: 1.0,
		ValidSpeechRatio:  0.25,
	}
}

// SegmentByBoundary assigns labels (e.g. Hangul syllables of the target
// text) to intervals found via energy/pitch-change boundary detection,
// falling back to equal division of the valid-speech span when the boundary
// count cannot be reconciled, or of the whole buffer when no valid-speech
// span is found.
func SegmentByBoundary(buf model.AudioBuffer, pitch model.PitchContour, labels []string, cfg BoundaryConfig) []model.Syllable {
	if len(labels) == 0 {
		return nil
	}
	intensity, step := intensityContour(buf, cfg.IntensityStepMS)
	start, end, ok := validSpeechSpan(intensity, step, cfg.ValidSpeechRatio)
	if !ok {
		return equalDivisionFallback(labels, 0, buf.Duration().Seconds())
	}

	energyBoundaries := findEnergyBoundaries(intensity, step, cfg.EnergyPercentile)
	pitchBoundaries := findPitchBoundaries(pitch, cfg.SemitoneThreshold)

	candidates := mergeBoundaries(start, end, energyBoundaries, pitchBoundaries)
	target := len(labels)
	candidates = optimizeBoundaries(candidates, target, end)

	if len(candidates) != target+1 {
		return equalDivisionFallback(labels, start, end)
	}
	times := make([]float64, len(candidates))
	for i, c := range candidates {
		times[i] = c.time
	}
	return assignLabels(labels, times)
}

// intensityReference is the RMS amplitude mapped to 0 dB (Praat's intensity
// reference), so audible frames get positive intensity values.
const intensityReference = 2e-5

// intensityContour computes RMS-in-log-scale intensity (dB relative to
// intensityReference) at stepMS steps; all-zero frames are left at 0.
func intensityContour(buf model.AudioBuffer, stepMS float64) ([]float64, float64) {
	stepSamples := int(stepMS / 1000 * float64(buf.SampleRate))
	if stepSamples <= 0 {
		return nil, stepMS / 1000
	}
	frames := dsp.Frame(buf.Samples, stepSamples, stepSamples)
	out := make([]float64, len(frames))
	for i, f := range frames {
		rms := dsp.RMS(f)
		if rms > 0 {
			out[i] = 20 * math.Log10(rms/intensityReference)
		}
	}
	return out, stepMS / 1000
}

// validSpeechSpan finds the above-threshold run covering the bulk of
// speech, per threshold = ratio * mean(intensity[intensity>0]).
func validSpeechSpan(intensity []float64, step float64, ratio float64) (float64, float64, bool) {
	var sum float64
	count := 0
	for _, v := range intensity {
		if v > 0 {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0, 0, false
	}
	mean := sum / float64(count)
	threshold := ratio * mean

	first, last := -1, -1
	for i, v := range intensity {
		if v > threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0, false
	}
	return float64(first) * step, float64(last+1) * step, true
}

type boundary struct {
	time     float64
	strength float64
}

// findEnergyBoundaries returns frame times where the first-difference
// magnitude exceeds the EnergyPercentile-th percentile and is a local
// maximum.
func findEnergyBoundaries(intensity []float64, step float64, percentile float64) []boundary {
	if len(intensity) < 3 {
		return nil
	}
	diffs := make([]float64, len(intensity)-1)
	for i := 1; i < len(intensity); i++ {
		diffs[i-1] = math.Abs(intensity[i] - intensity[i-1])
	}
	threshold := percentileOf(diffs, percentile)

	var out []boundary
	for i := 1; i < len(diffs)-1; i++ {
		if diffs[i] > threshold && diffs[i] >= diffs[i-1] && diffs[i] >= diffs[i+1] {
			out = append(out, boundary{time: float64(i+1) * step, strength: diffs[i]})
		}
	}
	return out
}

// findPitchBoundaries returns times where the semitone change between
// adjacent voiced frames exceeds thresholdSemitones.
func findPitchBoundaries(pitch model.PitchContour, thresholdSemitones float64) []boundary {
	var out []boundary
	pts := pitch.Points
	for i := 1; i < len(pts); i++ {
		if pts[i].FrequencyHz <= 0 || pts[i-1].FrequencyHz <= 0 {
			continue
		}
		s1 := semitone(pts[i-1].FrequencyHz)
		s2 := semitone(pts[i].FrequencyHz)
		if math.Abs(s2-s1) > thresholdSemitones {
			out = append(out, boundary{time: pts[i].Time, strength: math.Abs(s2 - s1)})
		}
	}
	return out
}

func semitone(freqHz float64) float64 {
	return 12*math.Log2(freqHz/440) + 69
}

func percentileOf(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

// mergeBoundaries merges energy and pitch candidates with the span
// endpoints, dedups near-identical times (keeping the stronger of the two
// when they collide), and sorts ascending. Endpoints carry +Inf strength so
// they are never dropped by selectStrongestSubset.
func mergeBoundaries(start, end float64, energy, pitchB []boundary) []boundary {
	all := append(append([]boundary{}, energy...), pitchB...)
	sort.Slice(all, func(i, j int) bool { return all[i].time < all[j].time })

	out := []boundary{{time: start, strength: math.Inf(1)}}
	const minGap = 0.03
	for _, b := range all {
		if b.time <= start || b.time >= end {
			continue
		}
		if len(out) > 0 && b.time-out[len(out)-1].time < minGap {
			if b.strength > out[len(out)-1].strength {
				out[len(out)-1] = b
			}
			continue
		}
		out = append(out, b)
	}
	out = append(out, boundary{time: end, strength: math.Inf(1)})
	return out
}

// optimizeBoundaries reconciles the candidate count with the target
// syllable count: if too many, select the strongest uniformly-spaced
// subset; if too few, repeatedly split the longest gap at its midpoint.
func optimizeBoundaries(candidates []boundary, target int, end float64) []boundary {
	wantPoints := target + 1
	for len(candidates) > wantPoints {
		candidates = selectStrongestSubset(candidates, wantPoints)
	}
	for len(candidates) < wantPoints {
		candidates = splitLongestGap(candidates)
	}
	return candidates
}

// selectStrongestSubset keeps the first and last point, partitions the
// remaining candidates into want-2 uniformly sized index ranges, and keeps
// the strongest candidate from each range — a uniformly spaced subset that
// is also the strongest available within each slot.
func selectStrongestSubset(candidates []boundary, want int) []boundary {
	if want < 2 || len(candidates) <= want {
		return candidates
	}
	out := make([]boundary, want)
	out[0] = candidates[0]
	out[want-1] = candidates[len(candidates)-1]
	interior := candidates[1 : len(candidates)-1]
	wantInterior := want - 2
	if wantInterior <= 0 || len(interior) == 0 {
		return out
	}
	for i := 0; i < wantInterior; i++ {
		lo := i * len(interior) / wantInterior
		hi := (i + 1) * len(interior) / wantInterior
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(interior) {
			hi = len(interior)
		}
		best := interior[lo]
		for _, c := range interior[lo+1 : hi] {
			if c.strength > best.strength {
				best = c
			}
		}
		out[i+1] = best
	}
	return out
}

func splitLongestGap(candidates []boundary) []boundary {
	if len(candidates) < 2 {
		return candidates
	}
	maxGap := -1.0
	maxIdx := 0
	for i := 1; i < len(candidates); i++ {
		gap := candidates[i].time - candidates[i-1].time
		if gap > maxGap {
			maxGap = gap
			maxIdx = i
		}
	}
	mid := (candidates[maxIdx-1].time + candidates[maxIdx].time) / 2
	strength := (candidates[maxIdx-1].strength + candidates[maxIdx].strength) / 2
	out := make([]boundary, 0, len(candidates)+1)
	out = append(out, candidates[:maxIdx]...)
	out = append(out, boundary{time: mid, strength: strength})
	out = append(out, candidates[maxIdx:]...)
	return out
}

func assignLabels(labels []string, boundaries []float64) []model.Syllable {
	out := make([]model.Syllable, len(labels))
	for i, l := range labels {
		out[i] = syllableFromText(l, boundaries[i], boundaries[i+1], 0.6)
	}
	return out
}

// equalDivisionFallback splits [start,end] into len(labels) equal parts.
func equalDivisionFallback(labels []string, start, end float64) []model.Syllable {
	if len(labels) == 0 || end <= start {
		return nil
	}
	step := (end - start) / float64(len(labels))
	out := make([]model.Syllable, len(labels))
	for i, l := range labels {
		out[i] = syllableFromText(l, start+float64(i)*step, start+float64(i+1)*step, 0.6)
	}
	return out
}
