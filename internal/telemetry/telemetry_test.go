package telemetry

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunIDIsUnique(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

func TestNopSinkDiscardsEverything(t *testing.T) {
	s := Nop()
	s.StartRun("r1")
	s.RecordSpan(Event{RunID: "r1", Stage: "validate"})
	s.EndRun("r1")
	s.Close()
}

func TestAsyncSinkDeliversSpansAndRunTransitionsInOrder(t *testing.T) {
	var mu sync.Mutex
	var spans []Event
	var runs []string

	sink := NewAsyncSink(
		func(ev Event) {
			mu.Lock()
			defer mu.Unlock()
			spans = append(spans, ev)
		},
		func(runID string, ended bool) {
			mu.Lock()
			defer mu.Unlock()
			suffix := "start"
			if ended {
				suffix = "end"
			}
			runs = append(runs, runID+":"+suffix)
		},
	)

	sink.StartRun("run-1")
	sink.RecordSpan(Event{RunID: "run-1", Stage: "preprocess", Outcome: "pass"})
	sink.EndRun("run-1")
	sink.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, spans, 1)
	assert.Equal(t, "preprocess", spans[0].Stage)
	assert.Equal(t, []string{"run-1:start", "run-1:end"}, runs)
}

func TestAsyncSinkTruncatesOversizedExtras(t *testing.T) {
	var got Event
	sink := NewAsyncSink(func(ev Event) { got = ev }, nil)
	sink.RecordSpan(Event{Extras: map[string]string{"k": strings.Repeat("x", maxExtraFieldLen+50)}})
	sink.Close()
	assert.Len(t, got.Extras["k"], maxExtraFieldLen)
}

func TestAsyncSinkStampsTimestampWhenZero(t *testing.T) {
	var got Event
	sink := NewAsyncSink(func(ev Event) { got = ev }, nil)
	sink.RecordSpan(Event{Stage: "x"})
	sink.Close()
	assert.False(t, got.Timestamp.IsZero())
}
