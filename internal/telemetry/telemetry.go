// Package telemetry implements the C15 telemetry/logging contract: a
// TelemetrySink interface threaded through the pipeline rather than a
// process-wide singleton, with an async buffered-channel implementation
// grounded on the teacher's trace.Tracer drain-goroutine pattern, a
// structured-logging sink, and a no-op sink for tests.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// eventBufferSize is how many events may queue before the drain goroutine
// falls behind.
const eventBufferSize = 64

// maxExtraFieldLen caps any string value stored in an Event's Extras to
// keep sinks bounded.
const maxExtraFieldLen = 500

// Event is one structured telemetry record, per spec §4.15's
// {timestamp, stage, component, duration_ms, outcome, extras} shape.
type Event struct {
	RunID      string
	ParentID   string
	Timestamp  time.Time
	Stage      string
	Component  string
	DurationMs float64
	Outcome    string
	Extras     map[string]string
}

// Sink is the interface every telemetry backend implements. Every pipeline
// invocation produces exactly one StartRun/EndRun pair with RecordSpan
// calls nested in between.
type Sink interface {
	StartRun(runID string)
	EndRun(runID string)
	RecordSpan(ev Event)
	Close()
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// nopSink implements Sink as a no-op; safe as the default when no sink is
// configured.
type nopSink struct{}

func (nopSink) StartRun(string)      {}
func (nopSink) EndRun(string)        {}
func (nopSink) RecordSpan(Event)     {}
func (nopSink) Close()               {}

// Nop returns a Sink that discards every event.
func Nop() Sink { return nopSink{} }

// SlogSink writes every event through log/slog at Info level (Warn level
// when Outcome == "fail"), matching the teacher's structured-logging setup.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink wraps logger (or slog.Default() if nil).
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) StartRun(runID string) {
	s.logger.Info("pipeline run started", "run_id", runID)
}

func (s *SlogSink) EndRun(runID string) {
	s.logger.Info("pipeline run ended", "run_id", runID)
}

func (s *SlogSink) RecordSpan(ev Event) {
	level := slog.LevelInfo
	if ev.Outcome == "fail" {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "pipeline span",
		"run_id", ev.RunID, "stage", ev.Stage, "component", ev.Component,
		"duration_ms", ev.DurationMs, "outcome", ev.Outcome)
}

func (s *SlogSink) Close() {}

// AsyncSink buffers events on a channel and hands them to a background
// drain goroutine, so that telemetry writes never block the pipeline's hot
// path. Modeled directly on the teacher's trace.Tracer.
type AsyncSink struct {
	ch     chan asyncMsg
	done   chan struct{}
	onSpan func(Event)
	onRun  func(runID string, ended bool)
}

type asyncMsg struct {
	event    Event
	isSpan   bool
	runID    string
	runEnded bool
}

// NewAsyncSink starts the drain goroutine, dispatching spans to onSpan and
// run start/end transitions to onRun. Callers must call Close to flush
// pending events and stop the goroutine.
func NewAsyncSink(onSpan func(Event), onRun func(runID string, ended bool)) *AsyncSink {
	s := &AsyncSink{
		ch:     make(chan asyncMsg, eventBufferSize),
		done:   make(chan struct{}),
		onSpan: onSpan,
		onRun:  onRun,
	}
	go s.drain()
	return s
}

func (s *AsyncSink) drain() {
	defer close(s.done)
	for msg := range s.ch {
		if msg.isSpan {
			if s.onSpan != nil {
				s.onSpan(msg.event)
			}
			continue
		}
		if s.onRun != nil {
			s.onRun(msg.runID, msg.runEnded)
		}
	}
}

func (s *AsyncSink) StartRun(runID string) {
	s.ch <- asyncMsg{runID: runID, runEnded: false}
}

func (s *AsyncSink) EndRun(runID string) {
	s.ch <- asyncMsg{runID: runID, runEnded: true}
}

func (s *AsyncSink) RecordSpan(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.Extras = truncateExtras(ev.Extras)
	s.ch <- asyncMsg{event: ev, isSpan: true}
}

func (s *AsyncSink) Close() {
	close(s.ch)
	<-s.done
}

func truncateExtras(extras map[string]string) map[string]string {
	if extras == nil {
		return nil
	}
	out := make(map[string]string, len(extras))
	for k, v := range extras {
		if len(v) > maxExtraFieldLen {
			v = v[:maxExtraFieldLen]
		}
		out[k] = v
	}
	return out
}
