package audio

import (
	"errors"
	"math"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

// ErrAllSilence is returned when the input buffer carries no non-zero
// samples.
var ErrAllSilence = errors.New("audio: all-silence input")

// ErrUnsupportedRate is returned when the normalizer is asked to resample
// to/from a rate it cannot handle (zero or negative).
var ErrUnsupportedRate = errors.New("audio: unsupported sample rate")

// NormalizeConfig configures the C2 normalization pipeline.
type NormalizeConfig struct {
	TargetSampleRate  int
	TargetDBFS        float64
	SilenceRunMS      float64 // minimum silent run length to trim, default 300ms
	SilenceGuardMS    float64 // retained silence guard on each edge, default 100ms
	SilenceFloorRatio float64 // threshold = max(peak*ratio, floor), default 0.03
	SilenceFloor      float64
}

// DefaultNormalizeConfig returns the spec's default normalization settings.
func DefaultNormalizeConfig() NormalizeConfig {
	return NormalizeConfig{
		TargetSampleRate:  16000,
		TargetDBFS:        -20.0,
		SilenceRunMS:      300,
		SilenceGuardMS:    100,
		SilenceFloorRatio: 0.03,
		SilenceFloor:      1e-4,
	}
}

// NormalizeReport carries side information about a Normalize call needed to
// rescale any timestamps derived from the original buffer.
type NormalizeReport struct {
	TimeRatio    float64 // output_duration / input_duration
	SilenceTrimmedStart float64 // seconds removed from the front
}

// Normalize downmixes to mono, resamples to cfg.TargetSampleRate, trims
// leading/trailing silence runs (keeping a short guard), and applies
// loudness normalization to cfg.TargetDBFS with hard limiting at ±0.99.
func Normalize(buf model.AudioBuffer, cfg NormalizeConfig) (model.AudioBuffer, NormalizeReport, error) {
	if cfg.TargetSampleRate <= 0 || buf.SampleRate <= 0 {
		return model.AudioBuffer{}, NormalizeReport{}, ErrUnsupportedRate
	}
	mono := downmix(buf)
	if allZero(mono) {
		return model.AudioBuffer{}, NormalizeReport{}, ErrAllSilence
	}
	inputDuration := float64(len(mono)) / float64(buf.SampleRate)

	resampled := Resample(mono, buf.SampleRate, cfg.TargetSampleRate)
	trimmed, trimmedStart := trimSilence(resampled, cfg.TargetSampleRate, cfg)
	loud := normalizeLoudness(trimmed, cfg.TargetDBFS)

	outDuration := float64(len(loud)) / float64(cfg.TargetSampleRate)
	ratio := 1.0
	if inputDuration > 0 {
		ratio = outDuration / inputDuration
	}

	out := model.AudioBuffer{
		Samples:    loud,
		SampleRate: cfg.TargetSampleRate,
		Channels:   1,
	}
	return out, NormalizeReport{TimeRatio: ratio, SilenceTrimmedStart: trimmedStart}, nil
}

func downmix(buf model.AudioBuffer) []float32 {
	if buf.Channels <= 1 {
		return append([]float32(nil), buf.Samples...)
	}
	frames := buf.Frames()
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < buf.Channels; c++ {
			sum += buf.Samples[i*buf.Channels+c]
		}
		out[i] = sum / float32(buf.Channels)
	}
	return out
}

func allZero(samples []float32) bool {
	for _, s := range samples {
		if s != 0 {
			return false
		}
	}
	return true
}

// trimSilence removes leading/trailing runs of below-threshold frames
// lasting at least cfg.SilenceRunMS, keeping a cfg.SilenceGuardMS guard on
// each side. Returns the trimmed samples and how many seconds were cut from
// the front (for timestamp rescaling).
func trimSilence(samples []float32, sampleRate int, cfg NormalizeConfig) ([]float32, float64) {
	if len(samples) == 0 {
		return samples, 0
	}
	peak := float32(0)
	for _, s := range samples {
		a := float32(math.Abs(float64(s)))
		if a > peak {
			peak = a
		}
	}
	threshold := float32(math.Max(float64(peak)*cfg.SilenceFloorRatio, cfg.SilenceFloor))
	runSamples := int(cfg.SilenceRunMS / 1000 * float64(sampleRate))
	guardSamples := int(cfg.SilenceGuardMS / 1000 * float64(sampleRate))

	start := 0
	run := 0
	for start < len(samples) {
		if float32(math.Abs(float64(samples[start]))) < threshold {
			run++
			start++
		} else {
			break
		}
	}
	if start == len(samples) {
		return samples, 0
	}
	if run >= runSamples {
		start -= guardSamples
		if start < 0 {
			start = 0
		}
	} else {
		start = 0
	}

	end := len(samples)
	run = 0
	for end > start {
		if float32(math.Abs(float64(samples[end-1]))) < threshold {
			run++
			end--
		} else {
			break
		}
	}
	if run >= runSamples {
		end += guardSamples
		if end > len(samples) {
			end = len(samples)
		}
	} else {
		end = len(samples)
	}

	if start >= end {
		return samples, 0
	}
	trimmedSeconds := float64(start) / float64(sampleRate)
	return samples[start:end], trimmedSeconds
}

// normalizeLoudness applies a scalar gain so the RMS level approaches
// targetDBFS, hard-limiting the result at ±0.99.
func normalizeLoudness(samples []float32, targetDBFS float64) []float32 {
	if len(samples) == 0 {
		return samples
	}
	var sumSquares float64
	for _, s := range samples {
		sumSquares += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSquares / float64(len(samples)))
	if rms == 0 {
		return samples
	}
	currentDBFS := 20 * math.Log10(rms)
	gainDB := targetDBFS - currentDBFS
	gain := math.Pow(10, gainDB/20)

	out := make([]float32, len(samples))
	for i, s := range samples {
		v := float64(s) * gain
		if v > 0.99 {
			v = 0.99
		} else if v < -0.99 {
			v = -0.99
		}
		out[i] = float32(v)
	}
	return out
}
