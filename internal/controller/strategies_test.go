package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectStrategyPicksLowestPriority(t *testing.T) {
	s, ok := selectStrategy("syllable_accuracy", map[string]bool{})
	require.True(t, ok)
	assert.Equal(t, StrategyWhisperLargePrecision, s.Name)
}

func TestSelectStrategySkipsTried(t *testing.T) {
	tried := map[string]bool{StrategyWhisperLargePrecision: true}
	s, ok := selectStrategy("syllable_accuracy", tried)
	require.True(t, ok)
	assert.Equal(t, StrategyKoreanConsonantBoost, s.Name)
}

func TestSelectStrategyExhausted(t *testing.T) {
	tried := map[string]bool{StrategyWhisperLargePrecision: true, StrategyKoreanConsonantBoost: true}
	_, ok := selectStrategy("syllable_accuracy", tried)
	assert.False(t, ok)
}

func TestSelectStrategyUnknownHint(t *testing.T) {
	_, ok := selectStrategy("not_a_real_hint", map[string]bool{})
	assert.False(t, ok)
}

// TestSelectStrategyIdempotent asserts that repeated calls with identical
// (hint, tried) inputs always return the same strategy, per spec §8's
// idempotence requirement on the total order over strategy names.
func TestSelectStrategyIdempotent(t *testing.T) {
	tried := map[string]bool{}
	first, ok1 := selectStrategy("confidence_score", tried)
	second, ok2 := selectStrategy("confidence_score", tried)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first.Name, second.Name)
}

func TestAllStrategiesRegistersSix(t *testing.T) {
	assert.Len(t, allStrategies(), 6)
}
