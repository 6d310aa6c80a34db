package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MDEF-GIT/ToneBridgeDemo-sub000/internal/model"
)

func sampleBuffer() model.AudioBuffer {
	return model.AudioBuffer{Samples: []float32{0.1, 0.2, 0.3}, SampleRate: 16000, Channels: 1}
}

func TestNewKeyDeterministic(t *testing.T) {
	buf := sampleBuffer()
	k1 := NewKey(buf, "안녕하세요", "ko-KR")
	k2 := NewKey(buf, "안녕하세요", "ko-KR")
	assert.Equal(t, k1, k2)
}

func TestNewKeyDiffersOnInput(t *testing.T) {
	buf := sampleBuffer()
	k1 := NewKey(buf, "안녕하세요", "ko-KR")
	k2 := NewKey(buf, "다른 텍스트", "ko-KR")
	assert.NotEqual(t, k1, k2)
}

func TestGetMissReturnsFalse(t *testing.T) {
	c := New("", 10)
	_, ok := c.Get(Key{1, 2, 3})
	assert.False(t, ok)
}

func TestPutThenGetHits(t *testing.T) {
	c := New("", 10)
	key := NewKey(sampleBuffer(), "안녕", "ko-KR")
	result := model.PipelineResult{FinalText: "안녕"}

	c.Put(key, result, time.Hour)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "안녕", got.FinalText)
}

func TestGetExpiresAfterTTL(t *testing.T) {
	c := New("", 10)
	key := NewKey(sampleBuffer(), "안녕", "ko-KR")
	c.Put(key, model.PipelineResult{FinalText: "안녕"}, 1*time.Nanosecond)

	time.Sleep(2 * time.Millisecond)
	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestPutEvictsLRUAtCapacity(t *testing.T) {
	c := New("", 2)
	k1 := NewKey(sampleBuffer(), "one", "ko-KR")
	k2 := NewKey(sampleBuffer(), "two", "ko-KR")
	k3 := NewKey(sampleBuffer(), "three", "ko-KR")

	c.Put(k1, model.PipelineResult{FinalText: "one"}, time.Hour)
	c.Put(k2, model.PipelineResult{FinalText: "two"}, time.Hour)
	c.Get(k1) // touch k1 so k2 becomes the LRU victim
	c.Put(k3, model.PipelineResult{FinalText: "three"}, time.Hour)

	_, ok := c.Get(k2)
	assert.False(t, ok, "k2 should have been evicted as least-recently-used")

	_, ok = c.Get(k1)
	assert.True(t, ok)
	_, ok = c.Get(k3)
	assert.True(t, ok)
}

func TestFilePersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, 10)
	key := NewKey(sampleBuffer(), "안녕", "ko-KR")
	c.Put(key, model.PipelineResult{FinalText: "안녕"}, time.Hour)

	// force a disk round-trip by constructing a fresh in-memory cache over
	// the same directory.
	c2 := New(dir, 10)
	got, ok := c2.Get(key)
	require.True(t, ok)
	assert.Equal(t, "안녕", got.FinalText)
	assert.FileExists(t, filepath.Join(dir, key.String()))
}
