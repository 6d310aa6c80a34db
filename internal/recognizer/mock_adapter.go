package recognizer

import (
	"context"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

// MockAdapter is an in-process Recognizer returning a fixed result, used in
// tests and as the ensemble's deterministic stand-in when no live backend
// is configured.
type MockAdapter struct {
	EngineID string
	Langs    []string
	Result   model.TranscriptionResult
	Err      *model.RecognizeError
}

func (m *MockAdapter) ID() string             { return m.EngineID }
func (m *MockAdapter) LanguageCodes() []string { return m.Langs }

func (m *MockAdapter) Recognize(ctx context.Context, audio model.AudioBuffer, opts Options) (model.TranscriptionResult, error) {
	if err := ctx.Err(); err != nil {
		return model.TranscriptionResult{}, &model.RecognizeError{Kind: model.ErrTimeout, EngineID: m.EngineID, Message: err.Error()}
	}
	if m.Err != nil {
		return model.TranscriptionResult{}, m.Err
	}
	r := m.Result
	r.EngineID = m.EngineID
	return r, nil
}
