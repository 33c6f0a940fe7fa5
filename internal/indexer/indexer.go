// Package indexer embeds the chunk file into a persisted vector index and
// writes the chunk store that maps index rows back to text.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lecturetutor/internal/chunker"
	"lecturetutor/internal/domain"
	"lecturetutor/internal/logger"
)

// storeSeparator delimits texts in the chunk store. Stored texts never contain it.
const storeSeparator = "\n\n"

// CreateFunc returns an empty index of the given dimension.
type CreateFunc func(dimension int) (domain.VectorIndex, error)

// Result summarises one index build.
type Result struct {
	Chunks    int
	Dropped   int
	Dimension int
}

// Indexer builds the index and chunk store from a chunk file.
type Indexer struct {
	embedder domain.Embedder
	create   CreateFunc
	minWords int
}

// New creates an Indexer. minWords <= 0 disables the short-chunk filter.
func New(embedder domain.Embedder, create CreateFunc, minWords int) *Indexer {
	return &Indexer{embedder: embedder, create: create, minWords: minWords}
}

// Run rebuilds the index at indexPath and the chunk store at storePath from chunkPath.
func (ix *Indexer) Run(ctx context.Context, chunkPath, indexPath, storePath string) (Result, error) {
	chunks, err := chunker.ReadChunkFile(chunkPath)
	if err != nil {
		return Result{}, err
	}

	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		text := normalize(c.Text)
		if ix.minWords > 0 && chunker.WordCount(text) < ix.minWords {
			continue
		}
		texts = append(texts, text)
	}
	dropped := len(chunks) - len(texts)
	if len(texts) == 0 {
		return Result{}, fmt.Errorf("%s: %w", chunkPath, domain.ErrNoChunks)
	}
	logger.Info("embedding chunks", "chunks", len(texts), "dropped", dropped, "embedder", ix.embedder.Name())

	start := time.Now()
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return Result{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return Result{}, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(texts))
	}

	index, err := ix.create(len(vectors[0]))
	if err != nil {
		return Result{}, fmt.Errorf("create index: %w", err)
	}
	if err := index.Add(vectors); err != nil {
		return Result{}, fmt.Errorf("add vectors: %w", err)
	}
	if err := index.Save(indexPath); err != nil {
		return Result{}, fmt.Errorf("save index: %w", err)
	}
	if err := WriteStore(storePath, texts); err != nil {
		return Result{}, fmt.Errorf("write chunk store: %w", err)
	}

	logger.Info("index built",
		"chunks", index.Len(),
		"dimension", index.Dimension(),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
		"index", indexPath,
		"store", storePath)
	return Result{Chunks: index.Len(), Dropped: dropped, Dimension: index.Dimension()}, nil
}

// WriteStore writes texts separated by a single blank line, in index order.
func WriteStore(path string, texts []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = normalize(t)
	}
	return os.WriteFile(path, []byte(strings.Join(normalized, storeSeparator)+"\n"), 0o644)
}

// ReadStore reads the chunk store; row i of the index corresponds to element i.
func ReadStore(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("chunk store not found: %s: %w", path, domain.ErrMissingInput)
		}
		return nil, err
	}
	var texts []string
	for _, part := range strings.Split(string(data), storeSeparator) {
		if t := strings.TrimSpace(part); t != "" {
			texts = append(texts, t)
		}
	}
	return texts, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
