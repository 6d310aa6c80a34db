// Package ws implements the live-capture transport (C18, ambient): clients
// stream PCM/G.711 chunks over a WebSocket, the streaming VAD segments
// utterances, and each completed utterance runs through the full
// controller.Pipeline, exactly as the file-input path does. Ported from the
// teacher's internal/ws/handler.go session-handling shape.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/audio"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/controller"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerConfig holds the shared pipeline and VAD defaults for every
// session.
type HandlerConfig struct {
	Pipeline *controller.Pipeline
	VADConfig audio.VADConfig
}

// Handler upgrades incoming HTTP connections to WebSocket call sessions.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler creates a live-capture WebSocket handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

// sessionMetadata is the first text frame a client sends.
type sessionMetadata struct {
	Codec          string `json:"codec"`
	SampleRate     int    `json:"sample_rate"`
	TargetText     string `json:"target_text"`
	Language       string `json:"language"`
}

// resultEvent is emitted as a text frame once an utterance's pipeline run
// completes.
type resultEvent struct {
	Type   string               `json:"type"`
	Result *model.PipelineResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// ServeHTTP upgrades the connection and drives one call session to
// completion.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	h.runSession(conn)
}

func (h *Handler) runSession(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	meta, err := readMetadata(conn)
	if err != nil {
		slog.Error("read session metadata", "error", err)
		return
	}

	sessionID := uuid.NewString()
	codec := audio.Codec(meta.Codec)
	if codec == "" {
		codec = audio.CodecPCM
	}
	sampleRate := meta.SampleRate
	if sampleRate <= 0 {
		sampleRate = h.cfg.VADConfig.SampleRate
	}

	slog.Info("live session started", "session_id", sessionID, "codec", codec, "sample_rate", sampleRate)

	detector := audio.NewVAD(h.cfg.VADConfig)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("live session closed", "session_id", sessionID, "error", err)
			break
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		h.handleChunk(ctx, conn, detector, data, codec, sampleRate, meta)
	}

	if tail := detector.Flush(); len(tail) > 0 {
		h.runUtterance(ctx, conn, tail, sampleRate, meta)
	}
	slog.Info("live session ended", "session_id", sessionID)
}

func (h *Handler) handleChunk(ctx context.Context, conn *websocket.Conn, detector *audio.VAD, data []byte, codec audio.Codec, sampleRate int, meta *sessionMetadata) {
	samples, rate, err := audio.Decode(data, codec, sampleRate)
	if err != nil {
		slog.Error("decode chunk", "error", err)
		writeEvent(conn, resultEvent{Type: "error", Error: err.Error()})
		return
	}
	result := detector.Process(samples)
	if result.SpeechEnded {
		h.runUtterance(ctx, conn, result.Audio, rate, meta)
	}
}

func (h *Handler) runUtterance(ctx context.Context, conn *websocket.Conn, samples []float32, sampleRate int, meta *sessionMetadata) {
	buf := model.AudioBuffer{Samples: samples, SampleRate: sampleRate, Channels: 1}
	result, err := h.cfg.Pipeline.Run(ctx, buf, meta.TargetText)
	if err != nil {
		slog.Error("pipeline run", "error", err)
		writeEvent(conn, resultEvent{Type: "error", Error: err.Error()})
		return
	}
	writeEvent(conn, resultEvent{Type: "result", Result: &result})
}

func writeEvent(conn *websocket.Conn, ev resultEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("write event", "error", err)
	}
}

func readMetadata(conn *websocket.Conn) (*sessionMetadata, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var meta sessionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
