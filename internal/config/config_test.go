package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 70, cfg.Chunker.WordLimit)
	assert.Equal(t, 1, cfg.Chunker.Overlap())
	assert.Equal(t, 20, cfg.Chunker.MinChunkWords())
	assert.Equal(t, 10, cfg.Indexer.MinChunkWords())
	assert.Equal(t, 3, cfg.Answerer.MinQuestionWords)
	assert.InDelta(t, 1.2, cfg.Answerer.MaxDistance, 1e-9)
	assert.Equal(t, 2, cfg.Answerer.MinOverlap)
	assert.Equal(t, "extractive", cfg.Answerer.Strategy)
	assert.Equal(t, "onnx", cfg.Embedder.Type)
	require.NotNil(t, cfg.Embedder.ONNX)
	assert.Equal(t, 384, cfg.Embedder.ONNX.Dimension)
	assert.Equal(t, "flat", cfg.VectorStore.Type)
	assert.Equal(t, "faster-whisper", cfg.Transcriber.Type)
	require.NotNil(t, cfg.Transcriber.FasterWhisper)
	assert.Equal(t, "int8", cfg.Transcriber.FasterWhisper.ComputeType)
	assert.Equal(t, filepath.Join("data", "vectors", "chunks_store.txt"), cfg.Paths.ChunkStore)
}

func TestLoad_OverridesAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
chunker:
  word_limit: 40
embedder:
  type: hash
answerer:
  strategy: generative
  max_distance: 0.8
vector_store:
  type: qdrant
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Chunker.WordLimit)
	assert.Equal(t, 20, cfg.Chunker.MinChunkWords())
	assert.Equal(t, "generative", cfg.Answerer.Strategy)
	assert.InDelta(t, 0.8, cfg.Answerer.MaxDistance, 1e-9)
	require.NotNil(t, cfg.Embedder.Hash)
	assert.Equal(t, 512, cfg.Embedder.Hash.Dimension)
	assert.Nil(t, cfg.Embedder.ONNX)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "lecture", cfg.VectorStore.Qdrant.Collection)
}

func TestLoad_ExplicitZeroDisables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
chunker:
  overlap_sentences: 0
  min_words: 0
indexer:
  min_words: 0
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Chunker.Overlap())
	assert.Equal(t, 0, cfg.Chunker.MinChunkWords())
	assert.Equal(t, 0, cfg.Indexer.MinChunkWords())
	assert.Equal(t, 70, cfg.Chunker.WordLimit)

	// zeros survive a save and reload
	require.NoError(t, Save(path, cfg))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Chunker.Overlap())
	assert.Equal(t, 0, cfg.Indexer.MinChunkWords())
}

func TestChunkerConfig_NilUsesDefaults(t *testing.T) {
	var c ChunkerConfig
	assert.Equal(t, 1, c.Overlap())
	assert.Equal(t, 20, c.MinChunkWords())
	assert.Equal(t, 10, IndexerConfig{}.MinChunkWords())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunker: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Answerer.Humanize = true
	cfg.Chunker.WordLimit = 55

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
