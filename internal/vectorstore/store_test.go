package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/abhisek/mentorloop/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	assert.Equal(t, v, UnpackFloat32(PackFloat32(v)))
	assert.Nil(t, UnpackFloat32([]byte{1, 2, 3}))
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{2, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"mismatched", []float32{1, 0}, []float32{1}, 1},
		{"zero", []float32{0, 0}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vec.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s.ChunkRepo())
}

func TestNearest(t *testing.T) {
	vs := newTestStore(t)
	ctx := context.Background()

	empty, err := vs.Nearest(ctx, []float32{1, 0, 0}, MetricCosine, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, vs.Put(ctx, Payload{ID: "x", Content: "stacks", Source: "ds.md", Type: "concept"}, "h1", []float32{1, 0, 0}))
	require.NoError(t, vs.Put(ctx, Payload{ID: "y", Content: "queues", Source: "ds.md", Type: "concept"}, "h2", []float32{0.8, 0.6, 0}))
	require.NoError(t, vs.Put(ctx, Payload{ID: "z", Content: "graphs", Source: "ds.md", Type: "example"}, "h3", []float32{0, 0, 1}))
	require.NoError(t, vs.Put(ctx, Payload{ID: "w", Content: "other model", Source: "old.md"}, "h4", []float32{1, 0}))

	got, err := vs.Nearest(ctx, []float32{1, 0, 0}, MetricCosine, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "x", got[0].Payload.ID)
	assert.InDelta(t, 0, got[0].Distance, 1e-6)
	assert.Equal(t, "y", got[1].Payload.ID)
	assert.InDelta(t, 0.2, got[1].Distance, 1e-6)

	all, err := vs.Nearest(ctx, []float32{1, 0, 0}, MetricCosine, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3, "vectors of another dimension are ignored")

	_, err = vs.Nearest(ctx, []float32{1, 0, 0}, Metric("dot"), 2)
	assert.Error(t, err)

	require.Error(t, vs.Put(ctx, Payload{ID: "e"}, "h", nil))
}
