// Command tonebridge runs the Korean pronunciation-assessment pipeline,
// either as a one-shot batch invocation (-file/-text, in the shape of the
// teacher's cmd/seed/main.go) or as an HTTP+WebSocket service exposing live
// capture (in the shape of the teacher's cmd/gateway/main.go).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/audio"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/cache"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/config"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/controller"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/ensemble"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/env"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/recognizer"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/router"
	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/telemetry"
	ws "github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/transport/ws"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	configPath := flag.String("config", env.Str("TONEBRIDGE_CONFIG", ""), "path to tonebridge.yaml/json config file")
	filePath := flag.String("file", "", "WAV file to run a single pipeline invocation against")
	targetText := flag.String("text", "", "reference Korean text to validate the transcription against")
	listenAddr := flag.String("listen", env.Str("TONEBRIDGE_LISTEN_ADDR", ""), "address to serve HTTP+WebSocket live capture on (e.g. :8080); empty disables the server")
	postgresDSN := flag.String("postgres-dsn", env.Str("TONEBRIDGE_POSTGRES_DSN", ""), "Postgres DSN enabling durable telemetry; empty uses structured logging only")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	sink := buildTelemetrySink(*postgresDSN)
	defer sink.Close()

	registry := buildRegistry(cfg)
	pipelineCfg := buildPipelineConfig(cfg, sink)
	pipe := controller.New(registry, pipelineCfg)

	if *filePath != "" {
		runBatch(*filePath, *targetText, pipe)
		return
	}

	if *listenAddr == "" {
		fmt.Fprintln(os.Stderr, "usage: tonebridge -file <wav> [-text <reference>]  OR  tonebridge -listen <addr>")
		os.Exit(1)
	}
	runServer(*listenAddr, pipe, cfg)
}

func buildTelemetrySink(postgresDSN string) telemetry.Sink {
	if postgresDSN == "" {
		return telemetry.NewSlogSink(slog.Default())
	}
	sink, err := telemetry.OpenPostgresSink(postgresDSN)
	if err != nil {
		slog.Error("open postgres telemetry sink, falling back to logging", "error", err)
		return telemetry.NewSlogSink(slog.Default())
	}
	slog.Info("telemetry enabled", "backend", "postgres")
	return sink
}

// buildRegistry registers one HTTPAdapter per TONEBRIDGE_<ENGINE>_URL environment
// variable that is set. With none set it registers an in-process mock that
// returns empty text, so every pipeline run then ends in ErrAllEnginesFailed.
func buildRegistry(cfg config.SessionConfig) *router.Router[recognizer.Recognizer] {
	candidates := []struct {
		id   string
		envv string
	}{
		{"whisper_large", "TONEBRIDGE_WHISPER_LARGE_URL"},
		{"whisper_base", "TONEBRIDGE_WHISPER_BASE_URL"},
		{"google_cloud", "TONEBRIDGE_GOOGLE_CLOUD_URL"},
		{"azure_speech", "TONEBRIDGE_AZURE_SPEECH_URL"},
		{"naver_clova", "TONEBRIDGE_NAVER_CLOVA_URL"},
	}

	backends := map[string]recognizer.Recognizer{}
	order := make([]string, 0, len(candidates))
	for _, c := range candidates {
		url := env.Str(c.envv, "")
		if url == "" {
			continue
		}
		backends[c.id] = recognizer.NewHTTPAdapter(c.id, []string{cfg.Language}, url, 10)
		order = append(order, c.id)
	}
	if len(backends) == 0 {
		slog.Warn("no STT engine URLs configured, registering an offline mock recognizer")
		backends[cfg.STTPrimary] = &recognizer.MockAdapter{
			EngineID: cfg.STTPrimary,
			Langs:    []string{cfg.Language},
			Result:   model.TranscriptionResult{Text: "", Language: cfg.Language, EngineID: cfg.STTPrimary},
		}
		order = append(order, cfg.STTPrimary)
	}
	return router.New(backends, order, cfg.STTPrimary)
}

func buildPipelineConfig(cfg config.SessionConfig, sink telemetry.Sink) controller.Config {
	c := controller.DefaultConfig()
	c.Normalize.TargetSampleRate = cfg.TargetSampleRate
	c.Normalize.TargetDBFS = cfg.TargetDBFS
	c.Pitch.PitchFloorHz = cfg.PitchFloor
	c.Pitch.PitchCeilingHz = cfg.PitchCeiling
	c.Pitch.TimeStep = cfg.TimeStep
	c.QualityThreshold = cfg.QualityThreshold
	c.MaxReprocessAttempts = cfg.MaxReprocessAttempts
	c.Ensemble = ensemble.Config{
		Deadline:            60 * time.Second,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		ConsensusSimilarity: 0.8,
		ConsensusMinGroup:   cfg.ConsensusThreshold,
		RequireConsensus:    false,
		MaxConcurrent:       8,
	}
	c.RecognizerOptions = recognizer.Options{Language: cfg.Language, WantWordTimestamps: true}
	c.CacheTTL = cfg.CacheTTL()
	if cfg.CacheDir != "" {
		c.Cache = cache.New(cfg.CacheDir, 1000)
	}
	c.Telemetry = sink
	return c
}

func runBatch(filePath, targetText string, pipe *controller.Pipeline) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Error("read audio file", "path", filePath, "error", err)
		os.Exit(1)
	}
	samples, sampleRate, channels, err := audio.SamplesFromWAV(data)
	if err != nil {
		slog.Error("decode wav", "path", filePath, "error", err)
		os.Exit(1)
	}
	buf := model.AudioBuffer{Samples: samples, SampleRate: sampleRate, Channels: channels}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := pipe.Run(ctx, buf, targetText)
	if err != nil {
		slog.Error("pipeline run", "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Error("marshal result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func runServer(addr string, pipe *controller.Pipeline, cfg config.SessionConfig) {
	handler := ws.NewHandler(ws.HandlerConfig{
		Pipeline:  pipe,
		VADConfig: audio.DefaultVADConfig(),
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go awaitShutdown(srv)

	slog.Info("tonebridge server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("tonebridge server stopped")
}

func awaitShutdown(srv *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
