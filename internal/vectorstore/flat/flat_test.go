package flat

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturetutor/internal/domain"
)

func TestNew_InvalidDimension(t *testing.T) {
	_, err := New(0)
	assert.Error(t, err)
}

func TestAdd_DimensionMismatch(t *testing.T) {
	x, err := New(2)
	require.NoError(t, err)

	err = x.Add([][]float32{{1, 0}, {1, 2, 3}})
	assert.Error(t, err)
	assert.Zero(t, x.Len(), "a rejected batch must not be partially applied")
}

func TestSearch_SquaredL2Ordering(t *testing.T) {
	x, err := New(2)
	require.NoError(t, err)
	require.NoError(t, x.Add([][]float32{{0, 0}, {3, 4}, {1, 1}}))

	hits, err := x.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, []int{0, 2, 1}, []int{hits[0].Position, hits[1].Position, hits[2].Position})
	assert.InDelta(t, 1.0, hits[0].Distance, 1e-6)
	assert.InDelta(t, 1.0, hits[1].Distance, 1e-6)
	assert.InDelta(t, 20.0, hits[2].Distance, 1e-6)
}

func TestSearch_KClamped(t *testing.T) {
	x, err := New(1)
	require.NoError(t, err)
	require.NoError(t, x.Add([][]float32{{5}, {1}}))

	hits, err := x.Search([]float32{0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = x.Search([]float32{0}, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Position)
}

func TestSearch_Empty(t *testing.T) {
	x, err := New(3)
	require.NoError(t, err)
	hits, err := x.Search([]float32{0, 0, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	x, err := New(3)
	require.NoError(t, err)
	_, err = x.Search([]float32{0}, 1)
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors", "index.flat")
	x, err := New(3)
	require.NoError(t, err)
	require.NoError(t, x.Add([][]float32{{0.1, 0.2, 0.3}, {-1, 0, 1}, {0.5, 0.5, 0.5}}))
	require.NoError(t, x.Save(path))

	y, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, x.Dimension(), y.Dimension())
	assert.Equal(t, x.vectors, y.vectors)

	q := []float32{0.4, 0.4, 0.6}
	want, err := x.Search(q, 3)
	require.NoError(t, err)
	got, err := y.Search(q, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.flat"))
	assert.ErrorIs(t, err, domain.ErrMissingInput)
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()

	badMagic := filepath.Join(dir, "magic.flat")
	require.NoError(t, os.WriteFile(badMagic, []byte("FAISS-not-really"), 0o644))
	_, err := Load(badMagic)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)

	x, err := New(2)
	require.NoError(t, err)
	require.NoError(t, x.Add([][]float32{{1, 2}, {3, 4}}))
	full := filepath.Join(dir, "full.flat")
	require.NoError(t, x.Save(full))
	data, err := os.ReadFile(full)
	require.NoError(t, err)

	truncated := filepath.Join(dir, "truncated.flat")
	require.NoError(t, os.WriteFile(truncated, data[:len(data)-3], 0o644))
	_, err = Load(truncated)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)

	oversized := filepath.Join(dir, "oversized.flat")
	header := append([]byte("LTFI"), make([]byte, 12)...)
	binary.LittleEndian.PutUint32(header[4:], 1)
	binary.LittleEndian.PutUint32(header[8:], 1)
	binary.LittleEndian.PutUint32(header[12:], 0xFFFFFFFF)
	require.NoError(t, os.WriteFile(oversized, header, 0o644))
	_, err = Load(oversized)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)

	hugeDim := filepath.Join(dir, "hugedim.flat")
	binary.LittleEndian.PutUint32(header[8:], 0xFFFFFFFF)
	binary.LittleEndian.PutUint32(header[12:], 1)
	require.NoError(t, os.WriteFile(hugeDim, header, 0o644))
	_, err = Load(hugeDim)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)

	trailing := filepath.Join(dir, "trailing.flat")
	require.NoError(t, os.WriteFile(trailing, append(data, 0, 0, 0, 0), 0o644))
	_, err = Load(trailing)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}
