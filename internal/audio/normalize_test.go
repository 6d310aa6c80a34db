package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

func sineSamples(sampleRate int, seconds float64, amplitude float32) []float32 {
	n := int(float64(sampleRate) * seconds)
	out := make([]float32, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = amplitude * float32(math.Sin(2*math.Pi*300*t))
	}
	return out
}

func TestNormalizeRejectsAllSilence(t *testing.T) {
	buf := model.AudioBuffer{Samples: make([]float32, 16000), SampleRate: 16000, Channels: 1}
	_, _, err := Normalize(buf, DefaultNormalizeConfig())
	assert.ErrorIs(t, err, ErrAllSilence)
}

func TestNormalizeRejectsUnsupportedRate(t *testing.T) {
	buf := model.AudioBuffer{Samples: sineSamples(16000, 1, 0.5), SampleRate: 0, Channels: 1}
	_, _, err := Normalize(buf, DefaultNormalizeConfig())
	assert.ErrorIs(t, err, ErrUnsupportedRate)
}

func TestNormalizeDownmixesStereo(t *testing.T) {
	mono := sineSamples(16000, 0.5, 0.5)
	stereo := make([]float32, 0, len(mono)*2)
	for _, s := range mono {
		stereo = append(stereo, s, s)
	}
	buf := model.AudioBuffer{Samples: stereo, SampleRate: 16000, Channels: 2}
	out, _, err := Normalize(buf, DefaultNormalizeConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Channels)
}

func TestNormalizeAchievesTargetLoudnessWithinLimiterBounds(t *testing.T) {
	buf := model.AudioBuffer{Samples: sineSamples(16000, 1, 0.01), SampleRate: 16000, Channels: 1}
	out, _, err := Normalize(buf, DefaultNormalizeConfig())
	require.NoError(t, err)
	var sumSquares float64
	for _, s := range out.Samples {
		assert.LessOrEqual(t, math.Abs(float64(s)), 0.99)
		sumSquares += float64(s) * float64(s)
	}
	rms := math.Sqrt(sumSquares / float64(len(out.Samples)))
	assert.InDelta(t, -20.0, 20*math.Log10(rms), 0.1)
}

func TestNormalizeReportsTimeRatio(t *testing.T) {
	buf := model.AudioBuffer{Samples: sineSamples(8000, 1, 0.5), SampleRate: 8000, Channels: 1}
	cfg := DefaultNormalizeConfig()
	cfg.TargetSampleRate = 16000
	_, report, err := Normalize(buf, cfg)
	require.NoError(t, err)
	assert.Greater(t, report.TimeRatio, 0.0)
}

func TestNormalizeTrimsLeadingSilence(t *testing.T) {
	silence := make([]float32, 16000) // 1s of silence
	tone := sineSamples(16000, 1, 0.5)
	buf := model.AudioBuffer{Samples: append(silence, tone...), SampleRate: 16000, Channels: 1}
	out, report, err := Normalize(buf, DefaultNormalizeConfig())
	require.NoError(t, err)
	assert.Less(t, len(out.Samples), len(buf.Samples))
	assert.Greater(t, report.SilenceTrimmedStart, 0.0)
}
