package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplesToWAVFromWAVRoundTrip(t *testing.T) {
	original := []float32{0, 0.5, -0.5, 0.25, -1.0, 1.0}
	encoded := SamplesToWAV(original, 16000)

	decoded, rate, channels, err := SamplesFromWAV(encoded)
	require.NoError(t, err)
	assert.Equal(t, 16000, rate)
	assert.Equal(t, 1, channels)
	require.Len(t, decoded, len(original))
	for i, want := range original {
		assert.InDelta(t, want, decoded[i], 1e-3)
	}
}

func TestSamplesFromWAVRejectsNonRIFF(t *testing.T) {
	_, _, _, err := SamplesFromWAV([]byte("not a wav file at all"))
	assert.Error(t, err)
}

func TestSamplesFromWAVRejectsTruncatedHeader(t *testing.T) {
	_, _, _, err := SamplesFromWAV([]byte("RIFF"))
	assert.Error(t, err)
}

func TestSamplesFromWAVToleratesExtraChunkBeforeData(t *testing.T) {
	encoded := SamplesToWAV([]float32{0.1, 0.2, 0.3}, 8000)
	// splice in a "LIST" chunk with an even-length payload right after the
	// fmt chunk, before data.
	listChunk := []byte{'L', 'I', 'S', 'T', 4, 0, 0, 0, 'd', 'u', 'c', 'k'}
	spliced := append(append(append([]byte{}, encoded[:36]...), listChunk...), encoded[36:]...)

	decoded, rate, channels, err := SamplesFromWAV(spliced)
	require.NoError(t, err)
	assert.Equal(t, 8000, rate)
	assert.Equal(t, 1, channels)
	require.Len(t, decoded, 3)
}
