package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteReturnsRegisteredBackend(t *testing.T) {
	r := New(map[string]string{"a": "backend-a", "b": "backend-b"}, []string{"a", "b"}, "a")
	got, err := r.Route("b")
	require.NoError(t, err)
	assert.Equal(t, "backend-b", got)
}

func TestRouteFallsBackWhenMissing(t *testing.T) {
	r := New(map[string]string{"a": "backend-a"}, []string{"a"}, "a")
	got, err := r.Route("missing")
	require.NoError(t, err)
	assert.Equal(t, "backend-a", got)
}

func TestRouteErrorsWhenNoFallback(t *testing.T) {
	r := New(map[string]string{"a": "backend-a"}, []string{"a"}, "does-not-exist")
	_, err := r.Route("missing")
	assert.Error(t, err)
}

func TestHas(t *testing.T) {
	r := New(map[string]string{"a": "x"}, []string{"a"}, "a")
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("b"))
}

func TestEnginesOrderedPreservesRegistrationOrder(t *testing.T) {
	backends := map[string]string{"whisper_large": "x", "naver_clova": "y", "azure_speech": "z"}
	order := []string{"naver_clova", "whisper_large", "azure_speech"}
	r := New(backends, order, "whisper_large")
	assert.Equal(t, order, r.EnginesOrdered())
}

func TestEnginesOrderedSkipsUnregistered(t *testing.T) {
	backends := map[string]string{"a": "x"}
	order := []string{"a", "b", "c"}
	r := New(backends, order, "a")
	assert.Equal(t, []string{"a"}, r.EnginesOrdered())
}
