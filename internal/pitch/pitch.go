// Package pitch implements the C4 pitch analyzer: an autocorrelation-based
// F0 tracker that keeps the single strongest lag per frame, followed by an
// octave-jump outlier filter (there is no multi-candidate dynamic-programming
// path search), voiced-frame statistics, gender estimation, and
// jitter/shimmer/HNR voice-quality measures.
package pitch

import (
	"math"
	"sort"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/dsp"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
	"gonum.org/v1/gonum/stat"
)

// Config parameterizes the F0 tracker.
type Config struct {
	PitchFloorHz   float64
	PitchCeilingHz float64
	TimeStep       float64 // seconds, default 0.01
	FrameLength    float64 // seconds, default 0.04
}

// DefaultConfig returns the spec's default pitch-tracker configuration.
func DefaultConfig() Config {
	return Config{PitchFloorHz: 75, PitchCeilingHz: 600, TimeStep: 0.01, FrameLength: 0.04}
}

// candidatePath describes one octave candidate on a Viterbi-style path
// across frames. The tracker in this file keeps one candidate per frame and
// does not use this type.
type candidatePath struct {
	freq     float64
	strength float64
	cost     float64
	prevIdx  int
}

// Analyze computes the pitch contour, statistics, gender estimate, and
// jitter/shimmer/HNR for buf.
func Analyze(buf model.AudioBuffer, cfg Config) model.PitchContour {
	frameLen := int(cfg.FrameLength * float64(buf.SampleRate))
	hop := int(cfg.TimeStep * float64(buf.SampleRate))
	if frameLen <= 0 || hop <= 0 || buf.SampleRate <= 0 {
		return model.PitchContour{TimeStep: cfg.TimeStep}
	}

	frames := dsp.Frame(buf.Samples, frameLen, hop)
	points := make([]model.PitchPoint, len(frames))
	minLag := int(float64(buf.SampleRate) / cfg.PitchCeilingHz)
	maxLag := int(float64(buf.SampleRate) / cfg.PitchFloorHz)

	for i, frame := range frames {
		t := float64(i) * cfg.TimeStep
		freq, strength := autocorrelatePitch(frame, buf.SampleRate, minLag, maxLag)
		points[i] = model.PitchPoint{Time: t, FrequencyHz: freq, Strength: strength}
	}

	smoothOctaveJumps(points)

	contour := model.PitchContour{Points: points, TimeStep: cfg.TimeStep}
	contour.Stats = computeStats(points)
	contour.VoiceQuality = computeVoiceQuality(points, cfg.TimeStep)
	return contour
}

// autocorrelatePitch finds the lag (within [minLag,maxLag]) with the
// strongest normalized autocorrelation peak and returns its frequency and
// strength. Returns (0, 0) for an unvoiced/too-quiet frame.
func autocorrelatePitch(frame []float32, sampleRate int, minLag, maxLag int) (float64, float64) {
	energy := dsp.RMS(frame)
	if energy < 1e-4 {
		return 0, 0
	}
	n := len(frame)
	if maxLag >= n {
		maxLag = n - 1
	}
	if minLag < 1 {
		minLag = 1
	}
	if minLag >= maxLag {
		return 0, 0
	}

	r0 := autocorr(frame, 0)
	if r0 == 0 {
		return 0, 0
	}

	bestLag := -1
	bestVal := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		r := autocorr(frame, lag) / r0
		if r > bestVal {
			bestVal = r
			bestLag = lag
		}
	}
	if bestLag < 0 || bestVal < 0.3 {
		return 0, 0
	}
	freq := float64(sampleRate) / float64(bestLag)
	strength := math.Min(1, math.Max(0, bestVal))
	return freq, strength
}

func autocorr(frame []float32, lag int) float64 {
	var sum float64
	for i := 0; i+lag < len(frame); i++ {
		sum += float64(frame[i]) * float64(frame[i+lag])
	}
	return sum
}

// smoothOctaveJumps applies a single left-to-right pass over frame-to-frame
// octave jumps (ratio near 2.0 or 0.5), replacing an isolated octave error
// with the previous frame's frequency. Since the simple
// autocorrelation tracker above returns a single best candidate per frame
// rather than a candidate list, this operates as a smoothing/outlier filter
// over the chosen path instead of a full multi-candidate Viterbi search.
func smoothOctaveJumps(points []model.PitchPoint) {
	for i := 1; i < len(points)-1; i++ {
		prev, cur, next := points[i-1], points[i], points[i+1]
		if cur.FrequencyHz == 0 || prev.FrequencyHz == 0 || next.FrequencyHz == 0 {
			continue
		}
		ratioPrev := cur.FrequencyHz / prev.FrequencyHz
		ratioNext := next.FrequencyHz / cur.FrequencyHz
		if isOctaveJump(ratioPrev) && !isOctaveJump(ratioNext) {
			points[i].FrequencyHz = prev.FrequencyHz
		}
	}
}

func isOctaveJump(ratio float64) bool {
	return math.Abs(ratio-2.0) < 0.15 || math.Abs(ratio-0.5) < 0.1
}

func computeStats(points []model.PitchPoint) model.PitchStats {
	var voiced []float64
	for _, p := range points {
		if p.FrequencyHz > 0 {
			voiced = append(voiced, p.FrequencyHz)
		}
	}
	if len(voiced) == 0 {
		return model.PitchStats{Gender: model.GenderUnknown}
	}
	sorted := append([]float64(nil), voiced...)
	sort.Float64s(sorted)

	mean := stat.Mean(voiced, nil)
	std := stat.StdDev(voiced, nil)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	q25 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q75 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	min, max := sorted[0], sorted[len(sorted)-1]

	return model.PitchStats{
		Mean: mean, Median: median, Std: std,
		Min: min, Max: max, Range: max - min,
		Q25: q25, Q75: q75, IQR: q75 - q25,
		VoicedFrames: len(voiced),
		Gender:       estimateGender(mean),
	}
}

// estimateGender maps mean voiced F0 to a coarse gender estimate per the
// spec's fixed thresholds.
func estimateGender(meanHz float64) model.Gender {
	switch {
	case meanHz <= 0:
		return model.GenderUnknown
	case meanHz < 140:
		return model.GenderMale
	case meanHz < 200:
		return model.GenderFemale
	case meanHz < 300:
		return model.GenderChild
	default:
		return model.GenderFemale
	}
}

// computeVoiceQuality derives jitter (local), shimmer (local), and HNR from
// the voiced segments of the pitch contour.
func computeVoiceQuality(points []model.PitchPoint, timeStep float64) model.VoiceQuality {
	var periods []float64
	for _, p := range points {
		if p.FrequencyHz > 0 {
			periods = append(periods, 1.0/p.FrequencyHz)
		}
	}
	jitter := localVariation(periods)

	var strengths []float64
	for _, p := range points {
		if p.FrequencyHz > 0 {
			strengths = append(strengths, p.Strength)
		}
	}
	shimmer := localVariation(strengths)

	hnr := estimateHNR(points)

	return model.VoiceQuality{
		JitterPercent:  jitter * 100,
		ShimmerPercent: shimmer * 100,
		HNRDb:          hnr,
	}
}

// localVariation returns the mean absolute difference between consecutive
// values divided by their mean, the classic "local jitter/shimmer" formula.
func localVariation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var diffSum, mean float64
	for i := 1; i < len(values); i++ {
		diffSum += math.Abs(values[i] - values[i-1])
	}
	mean = stat.Mean(values, nil)
	if mean == 0 {
		return 0
	}
	return (diffSum / float64(len(values)-1)) / mean
}

// estimateHNR approximates harmonics-to-noise ratio as the mean, over voiced
// frames with strength below 1, of each frame's 10*log10(r/(1-r)) for its
// autocorrelation strength r (the standard Praat HNR-from-autocorrelation
// formula).
func estimateHNR(points []model.PitchPoint) float64 {
	var sum float64
	count := 0
	for _, p := range points {
		if p.FrequencyHz > 0 && p.Strength < 1 {
			sum += 10 * math.Log10(p.Strength/(1-p.Strength))
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
