// Package vad implements the C6 voice-start detector. DetectVoiceStart
// accepts an optional coarse estimate derived from a recognizer's first-word
// duration (see CoarseEstimate) but always returns the result of a fine
// energy-based scan over the raw audio buffer, whether or not the two agree.
// The RMS framing mirrors the streaming detector in internal/audio/vad.go,
// here with a linear RMS threshold, retargeted from an
// online speech/silence state machine to a one-shot "find the first voiced
// frame" scan over a complete buffer.
package vad

import (
	"math"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

// Config parameterizes voice-start detection.
type Config struct {
	EnergyThreshold   float64 // linear RMS threshold, default 0.001
	WindowMS          float64 // frame length, default 50ms
	HopMS             float64 // frame hop, default 10ms
	MinContinuousMS   float64 // required continuous above-threshold run, default 50ms
	GuardMS           float64 // subtracted guard before the detected start, default 50ms
	DisagreementMS    float64 // coarse/fine disagreement threshold, default 100ms
}

// DefaultConfig returns the spec's default voice-start detector settings.
func DefaultConfig() Config {
	return Config{
		EnergyThreshold: 0.001,
		WindowMS:        50,
		HopMS:           10,
		MinContinuousMS: 50,
		GuardMS:         50,
		DisagreementMS:  100,
	}
}

// CoarseEstimate computes the coarse voice-start estimate from a
// recognizer's first word: if its duration exceeds 1.5s, 70% of that
// duration is assumed to be leading silence.
func CoarseEstimate(firstWord model.WordAlignment) (seconds float64, ok bool) {
	duration := firstWord.End - firstWord.Start
	if duration > 1.5 {
		return duration * 0.7, true
	}
	return 0, false
}

// DetectVoiceStart runs the fine energy-based scan over buf and returns its
// result. A coarse estimate, when given, does not change the outcome: the
// fine result is returned both when the two disagree by more than
// cfg.DisagreementMS and when they agree.
func DetectVoiceStart(buf model.AudioBuffer, cfg Config, coarse float64, haveCoarse bool) float64 {
	fine := fineDetect(buf, cfg)
	if !haveCoarse {
		return fine
	}
	if math.Abs(fine-coarse) > cfg.DisagreementMS/1000 {
		return fine
	}
	return fine
}

// fineDetect frames the buffer into WindowMS windows at HopMS hop, computes
// RMS energy per frame, and returns the earliest frame-start time (in
// seconds, guard-subtracted) whose energy exceeds EnergyThreshold for at
// least MinContinuousMS.
func fineDetect(buf model.AudioBuffer, cfg Config) float64 {
	if buf.SampleRate <= 0 || len(buf.Samples) == 0 {
		return 0
	}
	windowSamples := int(cfg.WindowMS / 1000 * float64(buf.SampleRate))
	hopSamples := int(cfg.HopMS / 1000 * float64(buf.SampleRate))
	if windowSamples <= 0 || hopSamples <= 0 {
		return 0
	}
	requiredFrames := int(math.Ceil(cfg.MinContinuousMS / cfg.HopMS))
	if requiredFrames < 1 {
		requiredFrames = 1
	}

	samples := buf.Samples
	frameCount := 0
	for start := 0; start+windowSamples <= len(samples); start += hopSamples {
		rms := rmsOf(samples[start : start+windowSamples])
		if rms > cfg.EnergyThreshold {
			frameCount++
			if frameCount >= requiredFrames {
				firstFrameStart := start - (requiredFrames-1)*hopSamples
				if firstFrameStart < 0 {
					firstFrameStart = 0
				}
				startSeconds := float64(firstFrameStart) / float64(buf.SampleRate)
				guard := cfg.GuardMS / 1000
				result := startSeconds - guard
				if result < 0 {
					result = 0
				}
				return result
			}
		} else {
			frameCount = 0
		}
	}
	return 0
}

func rmsOf(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
