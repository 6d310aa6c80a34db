package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

func TestAlignSyllablesDistributesWordSpanAcrossSyllables(t *testing.T) {
	words := []model.WordAlignment{{Word: "안녕", Start: 1.0, End: 2.0, Confidence: 0.9}}
	out := AlignSyllables("안녕", words, 0)
	require.Len(t, out, 2)
	assert.Equal(t, "안", out[0].Text)
	assert.InDelta(t, 1.0, out[0].Start, 1e-9)
	assert.InDelta(t, 1.5, out[0].End, 1e-9)
	assert.Equal(t, "녕", out[1].Text)
	assert.InDelta(t, 1.5, out[1].Start, 1e-9)
	assert.InDelta(t, 2.0, out[1].End, 1e-9)
	assert.InDelta(t, 0.9, out[0].Confidence, 1e-9)
}

func TestAlignSyllablesShiftsByVoiceStart(t *testing.T) {
	words := []model.WordAlignment{{Word: "가", Start: 1.5, End: 2.0, Confidence: 0.8}}
	out := AlignSyllables("가", words, 1.0)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.5, out[0].Start, 1e-9)
	assert.InDelta(t, 1.0, out[0].End, 1e-9)
}

func TestAlignSyllablesClampsNegativeShiftToZero(t *testing.T) {
	words := []model.WordAlignment{{Word: "가", Start: 0.2, End: 0.5, Confidence: 0.8}}
	out := AlignSyllables("가", words, 1.0)
	require.Len(t, out, 1)
	assert.Equal(t, 0.0, out[0].Start)
}

func TestAlignSyllablesDropsZeroDurationWords(t *testing.T) {
	words := []model.WordAlignment{{Word: "가", Start: 1.0, End: 1.0, Confidence: 0.8}}
	out := AlignSyllables("가", words, 0)
	assert.Empty(t, out)
}

func TestAlignSyllablesReconcilesLengthMismatch(t *testing.T) {
	words := []model.WordAlignment{{Word: "안녕", Start: 0, End: 1.0, Confidence: 0.9}}
	out := AlignSyllables("안녕하세요", words, 0) // target has 5 syllables, aligned has 2
	assert.Len(t, out, 2)
	for _, s := range out {
		assert.InDelta(t, uniformConfidence, s.Confidence, 1e-9)
	}
}

func TestAlignSyllablesDefaultsConfidenceWhenWordConfidenceMissing(t *testing.T) {
	words := []model.WordAlignment{{Word: "가", Start: 0, End: 1.0, Confidence: 0}}
	out := AlignSyllables("가", words, 0)
	require.Len(t, out, 1)
	assert.InDelta(t, wordTimestampConfidence, out[0].Confidence, 1e-9)
}

func TestAlignUniformDistributesEvenly(t *testing.T) {
	out := AlignUniform("가나다", 3.0)
	require.Len(t, out, 3)
	assert.InDelta(t, 0.0, out[0].Start, 1e-9)
	assert.InDelta(t, 1.0, out[0].End, 1e-9)
	assert.InDelta(t, 2.0, out[2].Start, 1e-9)
	assert.InDelta(t, 3.0, out[2].End, 1e-9)
}

func TestAlignUniformEmptyTextReturnsNil(t *testing.T) {
	assert.Nil(t, AlignUniform("", 1.0))
}

func TestSyllableFromTextDecomposesJamo(t *testing.T) {
	words := []model.WordAlignment{{Word: "강", Start: 0, End: 1.0, Confidence: 0.9}}
	out := AlignSyllables("강", words, 0)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].Initial)
	assert.NotEmpty(t, out[0].Medial)
	assert.NotEmpty(t, out[0].Final)
}
