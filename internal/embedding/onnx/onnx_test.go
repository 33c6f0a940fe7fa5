package onnx

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanBatches(t *testing.T) {
	tests := []struct {
		name    string
		lengths []int
		budget  int
		want    [][2]int
	}{
		{"empty", nil, 10, nil},
		{"all fit", []int{2, 2, 2}, 10, [][2]int{{0, 3}}},
		{"split on padded size", []int{3, 3, 5}, 10, [][2]int{{0, 2}, {2, 3}}},
		{"oversized alone", []int{20, 1}, 10, [][2]int{{0, 1}, {1, 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, planBatches(tt.lengths, tt.budget))
		})
	}
}

func TestMeanPool_MasksAndNormalizes(t *testing.T) {
	// batch 1, seq 3, dim 2; the padded third token must be ignored
	data := []float32{
		3, 0,
		3, 8,
		100, 100,
	}
	mask := []int64{1, 1, 0}
	out := meanPool(data, mask, 1, 3, 2)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.6, out[0][0], 1e-6)
	assert.InDelta(t, 0.8, out[0][1], 1e-6)

	n := math.Hypot(float64(out[0][0]), float64(out[0][1]))
	assert.InDelta(t, 1.0, n, 1e-6)
}

func TestMeanPool_EmptyMaskIsZero(t *testing.T) {
	out := meanPool([]float32{1, 2}, []int64{0}, 1, 1, 2)
	assert.Equal(t, []float32{0, 0}, out[0])
}

func TestNew_MissingAssets(t *testing.T) {
	_, err := New(Config{ModelPath: filepath.Join(t.TempDir(), "model.onnx")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// Runs only when the model assets and the runtime library are available locally.
func TestEmbed_WithModel(t *testing.T) {
	dir := os.Getenv("LECTURETUTOR_ONNX_DIR")
	if dir == "" {
		t.Skip("LECTURETUTOR_ONNX_DIR not set")
	}
	e, err := New(Config{
		ModelPath:     filepath.Join(dir, "model.onnx"),
		TokenizerPath: filepath.Join(dir, "tokenizer.json"),
		SharedLibrary: os.Getenv("ONNXRUNTIME_LIB"),
		Dimension:     384,
	})
	require.NoError(t, err)
	defer e.Close()

	vecs, err := e.EmbedBatch(context.Background(), []string{"The cell has a nucleus.", "Photosynthesis uses light."})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 384)
}

func TestLoadTokenizer_KeepsSEPWhenTruncating(t *testing.T) {
	dir := os.Getenv("LECTURETUTOR_ONNX_DIR")
	if dir == "" {
		t.Skip("LECTURETUTOR_ONNX_DIR not set")
	}
	tok, err := loadTokenizer(filepath.Join(dir, "tokenizer.json"))
	require.NoError(t, err)

	long := strings.Repeat("mitochondria produce energy for the cell ", 200)
	enc, err := tok.EncodeSingle(long, true)
	require.NoError(t, err)
	toks := enc.GetTokens()
	require.Len(t, toks, maxSeqLen)
	assert.Equal(t, "[CLS]", toks[0])
	assert.Equal(t, "[SEP]", toks[len(toks)-1])
}
