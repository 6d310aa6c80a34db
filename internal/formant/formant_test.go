package formant

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

func twoToneBuffer(sampleRate int, seconds float64) model.AudioBuffer {
	n := int(float64(sampleRate) * seconds)
	samples := make([]float32, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = float32(0.4*math.Sin(2*math.Pi*700*t) + 0.3*math.Sin(2*math.Pi*1800*t))
	}
	return model.AudioBuffer{Samples: samples, SampleRate: sampleRate, Channels: 1}
}

func TestAnalyzeProducesFramesAcrossBuffer(t *testing.T) {
	buf := twoToneBuffer(16000, 1.0)
	contour := Analyze(buf, DefaultConfig())
	require.NotEmpty(t, contour.Points)
}

func TestAnalyzeZeroSampleRateReturnsEmpty(t *testing.T) {
	buf := model.AudioBuffer{Samples: []float32{0.1, 0.2}, SampleRate: 0}
	contour := Analyze(buf, DefaultConfig())
	assert.Empty(t, contour.Points)
}

func TestConvexHullAreaOfSquareIsSideSquared(t *testing.T) {
	square := [][2]float64{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	assert.InDelta(t, 4.0, convexHullArea(square), 1e-9)
}

func TestConvexHullAreaDegenerateIsZero(t *testing.T) {
	assert.Equal(t, 0.0, convexHullArea([][2]float64{{0, 0}, {1, 1}}))
	assert.Equal(t, 0.0, convexHullArea([][2]float64{{0, 0}, {1, 0}, {2, 0}})) // collinear
}

func TestConvexHullAreaIgnoresInteriorPoints(t *testing.T) {
	pts := [][2]float64{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {2, 2}}
	assert.InDelta(t, 16.0, convexHullArea(pts), 1e-9)
}

func TestBurgLPCReturnsFalseForTooShortFrame(t *testing.T) {
	_, ok := burgLPC([]float32{0.1, 0.2}, 10)
	assert.False(t, ok)
}

func TestBurgLPCProducesLeadingUnityCoefficient(t *testing.T) {
	frame := make([]float32, 256)
	for i := range frame {
		frame[i] = float32(math.Sin(2 * math.Pi * 0.05 * float64(i)))
	}
	coeffs, ok := burgLPC(frame, 10)
	require.True(t, ok)
	assert.Equal(t, 1.0, coeffs[0])
	assert.Len(t, coeffs, 11)
}
