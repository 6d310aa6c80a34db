package controller

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/cache"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/recognizer"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/router"
)

// sineBuffer builds a one-second 440Hz tone at 16kHz so it survives
// normalization's silence rejection and trimming.
func sineBuffer() model.AudioBuffer {
	const sampleRate = 16000
	samples := make([]float32, sampleRate)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*t))
	}
	return model.AudioBuffer{Samples: samples, SampleRate: sampleRate, Channels: 1}
}

func mockPipeline(t *testing.T, text string, confidence float64) *Pipeline {
	t.Helper()
	reg := router.New(map[string]recognizer.Recognizer{
		"whisper_large": &recognizer.MockAdapter{
			EngineID: "whisper_large",
			Langs:    []string{"ko-KR"},
			Result:   model.TranscriptionResult{Text: text, Confidence: confidence},
		},
	}, []string{"whisper_large"}, "whisper_large")

	cfg := DefaultConfig()
	cfg.RecognizerOptions = recognizer.Options{Language: "ko-KR"}
	return New(reg, cfg)
}

func TestRunAcceptsOnFirstPassWhenQualityPasses(t *testing.T) {
	// "안녕하" is 3 syllables; at the 0.3s/syllable prior that lines up
	// closely with the 1-second sine buffer's duration, keeping
	// duration_alignment high enough for the composite score to clear
	// the default 0.95 pass threshold on the first attempt.
	p := mockPipeline(t, "안녕하", 1.0)
	result, err := p.Run(context.Background(), sineBuffer(), "안녕하")
	require.NoError(t, err)
	assert.Equal(t, "안녕하", result.FinalText)
	assert.True(t, result.Quality.Pass)
	assert.Equal(t, 0, result.ReprocessAttempts)
}

func TestRunReprocessesUpToMaxAttemptsOnPersistentMismatch(t *testing.T) {
	p := mockPipeline(t, "완전히 다른 말", 0.2)
	p.cfg.MaxReprocessAttempts = 2
	result, err := p.Run(context.Background(), sineBuffer(), "안녕하세요")
	require.NoError(t, err)
	assert.LessOrEqual(t, result.ReprocessAttempts, 2)
	assert.NotEmpty(t, result.Warnings)
}

func TestRunSkipsQualityGateWhenNoTargetText(t *testing.T) {
	p := mockPipeline(t, "아무 텍스트", 0.3)
	result, err := p.Run(context.Background(), sineBuffer(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ReprocessAttempts)
	assert.Equal(t, "아무 텍스트", result.FinalText)
}

func TestRunReturnsErrCancelRequestedOnPreCanceledContext(t *testing.T) {
	p := mockPipeline(t, "안녕하세요", 1.0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Run(ctx, sineBuffer(), "안녕하세요")
	assert.ErrorIs(t, err, ErrCancelRequested)
}

func TestRunCacheHitShortCircuits(t *testing.T) {
	p := mockPipeline(t, "안녕하세요", 1.0)
	p.cfg.Cache = cache.New("", 10)
	p.cfg.CacheTTL = time.Hour

	buf := sineBuffer()
	first, err := p.Run(context.Background(), buf, "안녕하세요")
	require.NoError(t, err)

	// flip the adapter's result so only a true cache hit could reproduce the
	// original text.
	p.registry = router.New(map[string]recognizer.Recognizer{
		"whisper_large": &recognizer.MockAdapter{
			EngineID: "whisper_large", Langs: []string{"ko-KR"},
			Result: model.TranscriptionResult{Text: "다른 응답", Confidence: 1.0},
		},
	}, []string{"whisper_large"}, "whisper_large")

	second, err := p.Run(context.Background(), buf, "안녕하세요")
	require.NoError(t, err)
	assert.Equal(t, first.FinalText, second.FinalText)
}

func TestRunIsIdempotentGivenIdenticalInputs(t *testing.T) {
	p := mockPipeline(t, "안녕하세요", 1.0)
	buf := sineBuffer()

	r1, err := p.Run(context.Background(), buf, "안녕하세요")
	require.NoError(t, err)
	r2, err := p.Run(context.Background(), buf, "안녕하세요")
	require.NoError(t, err)

	assert.Equal(t, r1.FinalText, r2.FinalText)
	assert.Equal(t, r1.Quality.Pass, r2.Quality.Pass)
}

func TestRunAllEnginesFailedSurfacesError(t *testing.T) {
	reg := router.New(map[string]recognizer.Recognizer{
		"whisper_large": &recognizer.MockAdapter{
			EngineID: "whisper_large", Langs: []string{"ko-KR"},
			Err: &model.RecognizeError{Kind: model.ErrTransient, EngineID: "whisper_large", Message: "down"},
		},
	}, []string{"whisper_large"}, "whisper_large")
	cfg := DefaultConfig()
	cfg.RecognizerOptions = recognizer.Options{Language: "ko-KR"}
	p := New(reg, cfg)

	_, err := p.Run(context.Background(), sineBuffer(), "안녕하세요")
	assert.Error(t, err)
}

func TestSortedStrategyNamesIsDeterministic(t *testing.T) {
	first := sortedStrategyNames()
	second := sortedStrategyNames()
	assert.Equal(t, first, second)
	assert.Len(t, first, 6)
}
