package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	s := 0.0
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestNewEmbedder_InvalidDimension(t *testing.T) {
	_, err := NewEmbedder(0)
	assert.Error(t, err)
}

func TestEmbed_DeterministicAndNormalized(t *testing.T) {
	e, err := NewEmbedder(64)
	require.NoError(t, err)
	assert.Equal(t, "hash", e.Name())
	assert.Equal(t, 64, e.Dimension())

	ctx := context.Background()
	a, err := e.Embed(ctx, "The mitochondria is the powerhouse of the cell.")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "The mitochondria is the powerhouse of the cell.")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, norm(a), 1e-5)
}

func TestEmbed_StopwordsOnlyIsZero(t *testing.T) {
	e, err := NewEmbedder(16)
	require.NoError(t, err)
	v, err := e.Embed(context.Background(), "The and of it is.")
	require.NoError(t, err)
	assert.Zero(t, norm(v))
}

func TestEmbed_CaseAndStopwordInsensitive(t *testing.T) {
	e, err := NewEmbedder(128)
	require.NoError(t, err)
	ctx := context.Background()
	a, err := e.Embed(ctx, "Powerhouse CELL")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "what is the powerhouse of the cell")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	e, err := NewEmbedder(32)
	require.NoError(t, err)
	ctx := context.Background()
	texts := []string{"photosynthesis light", "mitochondria energy"}

	batch, err := e.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	for i, text := range texts {
		single, err := e.Embed(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestEmbedBatch_Cancelled(t *testing.T) {
	e, err := NewEmbedder(32)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EmbedBatch(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
}
