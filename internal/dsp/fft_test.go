package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFFTIFFTRoundTrip(t *testing.T) {
	data := make([]Complex, 8)
	for i := range data {
		data[i] = Complex{Re: math.Sin(2 * math.Pi * float64(i) / 8), Im: 0}
	}
	original := append([]Complex(nil), data...)

	FFT(data)
	IFFT(data)

	for i, c := range data {
		assert.InDelta(t, original[i].Re, c.Re, 1e-9)
		assert.InDelta(t, original[i].Im, c.Im, 1e-9)
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 1024: 1024, 1025: 2048}
	for in, want := range cases {
		assert.Equal(t, want, NextPowerOfTwo(in))
	}
}

func TestZeroPadPreservesSamplesAndPads(t *testing.T) {
	samples := []float32{1, 2, 3}
	out := ZeroPad(samples)
	assert.Len(t, out, 4)
	assert.Equal(t, 1.0, out[0].Re)
	assert.Equal(t, 2.0, out[1].Re)
	assert.Equal(t, 3.0, out[2].Re)
	assert.Equal(t, 0.0, out[3].Re)
}

func TestHannWindowShape(t *testing.T) {
	w := HannWindow(8)
	assert.InDelta(t, 0.0, w[0], 1e-9)
	// symmetric and peaks at the center
	mid := w[len(w)/2]
	for _, v := range w {
		assert.LessOrEqual(t, v, mid+1e-9)
	}
}

func TestHannWindowSinglePoint(t *testing.T) {
	w := HannWindow(1)
	assert.Equal(t, []float64{1}, w)
}

func TestFrameZeroPadsFinalPartialFrame(t *testing.T) {
	samples := []float32{1, 2, 3, 4, 5}
	frames := Frame(samples, 4, 4)
	require := assert.New(t)
	require.Len(frames, 2)
	require.Equal([]float32{1, 2, 3, 4}, frames[0])
	require.Equal([]float32{5, 0, 0, 0}, frames[1])
}

func TestFrameEmptyInput(t *testing.T) {
	assert.Nil(t, Frame(nil, 4, 2))
}

func TestRMSAndDBFromRMS(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	samples := []float32{1, -1, 1, -1}
	assert.InDelta(t, 1.0, RMS(samples), 1e-9)
	assert.Equal(t, -90.0, DBFromRMS(0, -90))
	assert.InDelta(t, 0.0, DBFromRMS(1.0, -90), 1e-9)
}
