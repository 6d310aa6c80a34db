package textdist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want int
	}{
		{"identical", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 0},
		{"one substitution", []string{"a", "b", "c"}, []string{"a", "x", "c"}, 1},
		{"empty a", nil, []string{"a", "b"}, 2},
		{"empty b", []string{"a", "b"}, nil, 2},
		{"both empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EditDistance(tt.a, tt.b))
		})
	}
}

func TestSimilarityRatio(t *testing.T) {
	t.Run("identical strings", func(t *testing.T) {
		assert.InDelta(t, 1.0, SimilarityRatio("안녕하세요", "안녕하세요"), 1e-9)
	})
	t.Run("both empty", func(t *testing.T) {
		assert.InDelta(t, 1.0, SimilarityRatio("", ""), 1e-9)
	})
	t.Run("completely different", func(t *testing.T) {
		assert.InDelta(t, 0.0, SimilarityRatio("abc", "xyz"), 1e-9)
	})
	t.Run("bounded in zero one", func(t *testing.T) {
		r := SimilarityRatio("안녕", "안뇽")
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 1.0)
	})
}

func TestComputeWER(t *testing.T) {
	t.Run("perfect match", func(t *testing.T) {
		assert.InDelta(t, 0.0, ComputeWER("hello world", "hello world"), 1e-9)
	})
	t.Run("one word wrong of two", func(t *testing.T) {
		assert.InDelta(t, 0.5, ComputeWER("hello world", "hello there"), 1e-9)
	})
	t.Run("empty reference and hypothesis", func(t *testing.T) {
		assert.InDelta(t, 0.0, ComputeWER("", ""), 1e-9)
	})
	t.Run("empty reference nonempty hypothesis", func(t *testing.T) {
		assert.InDelta(t, 1.0, ComputeWER("", "hello"), 1e-9)
	})
}
