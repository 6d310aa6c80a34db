// Package recognizer defines the pluggable STT interface the core
// consumes, the options/deadline contract, and a concrete HTTP-multipart
// adapter (modeled on a whisper.cpp-style inference server) plus an
// in-process mock used by tests and the ensemble's dry-run mode.
package recognizer

import (
	"context"
	"time"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

// Options carries the per-call recognition parameters.
type Options struct {
	Language           string
	WantWordTimestamps bool
	InitialPrompt      string
	Temperature        float64
	BeamSize           int
}

// Recognizer is the plug-in contract every STT backend adapter implements.
type Recognizer interface {
	// ID returns the adapter's stable engine identifier (e.g. "whisper_large").
	ID() string
	// LanguageCodes returns the BCP-47-ish codes this engine supports.
	LanguageCodes() []string
	// Recognize transcribes audio under opts, honoring ctx's deadline.
	Recognize(ctx context.Context, audio model.AudioBuffer, opts Options) (model.TranscriptionResult, error)
}

// BaseWeight returns the ensemble's fixed per-engine confidence weight for
// a known engine id, or 0.7 (whisper_base's weight) for an unrecognized id.
func BaseWeight(engineID string) float64 {
	switch engineID {
	case "whisper_large":
		return 1.0
	case "google_cloud":
		return 0.9
	case "azure_speech":
		return 0.8
	case "naver_clova":
		return 0.95
	case "whisper_base":
		return 0.7
	default:
		return 0.7
	}
}

// WithDeadline returns a context bound to the given timeout, or ctx
// unchanged if timeout is zero, along with the cancel func to release
// resources (always non-nil; safe to defer unconditionally).
func WithDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
