package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/audio"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/httpclient"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/metrics"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

// HTTPAdapter wraps one HTTP-multipart inference server (e.g. a
// whisper.cpp-style server, or a vendor's Korean STT endpoint behind a thin
// proxy) as a Recognizer.
type HTTPAdapter struct {
	engineID string
	langs    []string
	url      string
	client   *http.Client
}

// NewHTTPAdapter builds an adapter bound to url, pooling poolSize
// connections.
func NewHTTPAdapter(engineID string, langs []string, url string, poolSize int) *HTTPAdapter {
	return &HTTPAdapter{
		engineID: engineID,
		langs:    langs,
		url:      url,
		client:   httpclient.NewPooled(poolSize, 30*time.Second),
	}
}

func (a *HTTPAdapter) ID() string             { return a.engineID }
func (a *HTTPAdapter) LanguageCodes() []string { return a.langs }

type inferenceResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Words      []struct {
		Word       string  `json:"word"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
}

// Recognize POSTs the audio as a WAV multipart form to the server and
// decodes its JSON transcription response. Errors are mapped into the
// common RecognizeError taxonomy.
func (a *HTTPAdapter) Recognize(ctx context.Context, buf model.AudioBuffer, opts Options) (model.TranscriptionResult, error) {
	body, contentType, err := buildMultipartAudio(buf)
	if err != nil {
		return model.TranscriptionResult{}, &model.RecognizeError{Kind: model.ErrMalformed, EngineID: a.engineID, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url+"/inference", body)
	if err != nil {
		return model.TranscriptionResult{}, &model.RecognizeError{Kind: model.ErrMalformed, EngineID: a.engineID, Message: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)
	q := req.URL.Query()
	q.Set("language", opts.Language)
	if opts.WantWordTimestamps {
		q.Set("word_timestamps", "true")
	}
	req.URL.RawQuery = q.Encode()

	resp, err := a.client.Do(req)
	if err != nil {
		kind := model.ErrTransient
		if ctx.Err() != nil {
			kind = model.ErrTimeout
		}
		metrics.RecognizerErrors.WithLabelValues(a.engineID, kind.String()).Inc()
		return model.TranscriptionResult{}, &model.RecognizeError{Kind: kind, EngineID: a.engineID, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return model.TranscriptionResult{}, &model.RecognizeError{Kind: model.ErrAuthFailed, EngineID: a.engineID, Message: resp.Status}
	}
	if resp.StatusCode == http.StatusServiceUnavailable {
		return model.TranscriptionResult{}, &model.RecognizeError{Kind: model.ErrUnavailable, EngineID: a.engineID, Message: resp.Status}
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return model.TranscriptionResult{}, &model.RecognizeError{Kind: model.ErrTransient, EngineID: a.engineID, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, b)}
	}

	var ir inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return model.TranscriptionResult{}, &model.RecognizeError{Kind: model.ErrMalformed, EngineID: a.engineID, Message: err.Error()}
	}

	words := make([]model.WordAlignment, len(ir.Words))
	for i, w := range ir.Words {
		words[i] = model.WordAlignment{Word: w.Word, Start: w.Start, End: w.End, Confidence: w.Confidence}
	}

	return model.TranscriptionResult{
		Text:       ir.Text,
		Language:   opts.Language,
		Confidence: ir.Confidence,
		Words:      words,
		EngineID:   a.engineID,
	}, nil
}

func buildMultipartAudio(buf model.AudioBuffer) (*bytes.Buffer, string, error) {
	wavData := audio.SamplesToWAV(buf.Samples, buf.SampleRate)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(wavData); err != nil {
		return nil, "", fmt.Errorf("write wav data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}
