package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePerfectMatchPasses(t *testing.T) {
	m := Validate(Input{
		PredictedText:       "안녕하세요",
		TargetText:          "안녕하세요",
		AudioDurationSec:    5 * syllableDurationPriorSec,
		PredictedConfidence: 1.0,
	})
	assert.InDelta(t, 1.0, m.SyllableAccuracy, 1e-9)
	assert.InDelta(t, 1.0, m.PhoneticSimilarity, 1e-9)
	assert.True(t, m.Pass)
	assert.Empty(t, m.StrategyHint)
}

func TestValidateMismatchFailsWithHint(t *testing.T) {
	m := Validate(Input{
		PredictedText:       "완전히 다른 문장",
		TargetText:          "안녕하세요",
		AudioDurationSec:    0.01,
		PredictedConfidence: 0.1,
	})
	assert.False(t, m.Pass)
	assert.NotEmpty(t, m.StrategyHint)
	assert.LessOrEqual(t, m.Overall, 1.0)
	assert.GreaterOrEqual(t, m.Overall, 0.0)
}

func TestValidateCustomThreshold(t *testing.T) {
	in := Input{
		PredictedText:       "안녕",
		TargetText:          "안녕",
		AudioDurationSec:    2 * syllableDurationPriorSec,
		PredictedConfidence: 0.5,
		Threshold:           0.99,
	}
	m := Validate(in)
	assert.Less(t, m.Overall, 0.99)
	assert.False(t, m.Pass)
}

func TestDurationAlignmentZeroDuration(t *testing.T) {
	m := Validate(Input{
		PredictedText:       "안녕",
		TargetText:          "안녕",
		AudioDurationSec:    0,
		PredictedConfidence: 1.0,
	})
	assert.InDelta(t, 0.0, m.DurationAlignment, 1e-9)
}

func TestKoreanTextQualityEmptyText(t *testing.T) {
	m := Validate(Input{
		PredictedText:       "",
		TargetText:          "안녕",
		AudioDurationSec:    1,
		PredictedConfidence: 0,
	})
	assert.InDelta(t, 0.0, m.KoreanTextQuality, 1e-9)
}

func TestOverallWithinUnitInterval(t *testing.T) {
	cases := []Input{
		{PredictedText: "가나다", TargetText: "가나다라", AudioDurationSec: 1.5, PredictedConfidence: 0.7},
		{PredictedText: "", TargetText: "", AudioDurationSec: 0, PredictedConfidence: 0},
		{PredictedText: "hello", TargetText: "안녕", AudioDurationSec: 10, PredictedConfidence: 1.0},
	}
	for i, in := range cases {
		m := Validate(in)
		assert.GreaterOrEqualf(t, m.Overall, 0.0, "case %d", i)
		assert.LessOrEqualf(t, m.Overall, 1.0, "case %d", i)
	}
}
