package chunker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturetutor/internal/domain"
)

func tenWordSentences(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("Sentence number %d has exactly ten words in it today.", i+1)
	}
	return strings.Join(parts, " ")
}

func TestNewSentenceChunker_Defaults(t *testing.T) {
	c := NewSentenceChunker(0, -1, -5)
	assert.Equal(t, DefaultWordLimit, c.wordLimit)
	assert.Equal(t, 0, c.overlapSentences)
	assert.Equal(t, 0, c.minWords)
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "   ", nil},
		{"single without punctuation", "just some words", []string{"just some words"}},
		{"mixed terminators", "One. Two! Three? Four", []string{"One.", "Two!", "Three?", "Four"}},
		{"punctuation without whitespace stays", "Version 1.2 is out. Next", []string{"Version 1.2 is out.", "Next"}},
		{"newlines are boundaries after punctuation", "First line.\nSecond line\ncontinues here.", []string{"First line.", "Second line continues here."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}

func TestChunk_ShortTranscriptIsDiscarded(t *testing.T) {
	c := NewSentenceChunker(70, 1, 20)
	chunks, raw := c.Chunk("Photosynthesis converts light into energy. Plants use chlorophyll.")

	assert.Equal(t, 1, raw)
	assert.Empty(t, chunks)
}

func TestChunk_ShortTranscriptKeptWhenAboveMinimum(t *testing.T) {
	c := NewSentenceChunker(70, 1, 5)
	text := "Photosynthesis converts light into energy. Plants use chlorophyll."
	chunks, raw := c.Chunk(text)

	require.Len(t, chunks, 1)
	assert.Equal(t, 1, raw)
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, 1, chunks[0].Index)
}

func TestChunk_OverlapAndSizes(t *testing.T) {
	c := NewSentenceChunker(70, 1, 20)
	chunks, raw := c.Chunk(tenWordSentences(20))

	require.Len(t, chunks, 4)
	assert.Equal(t, 4, raw)
	for i, ch := range chunks {
		assert.Equal(t, i+1, ch.Index)
		assert.GreaterOrEqual(t, WordCount(ch.Text), 20)
	}
	for i := 0; i+1 < len(chunks); i++ {
		prev := SplitSentences(chunks[i].Text)
		next := SplitSentences(chunks[i+1].Text)
		assert.Equal(t, prev[len(prev)-1], next[0], "chunk %d should start with the last sentence of chunk %d", i+2, i+1)
	}
	assert.True(t, strings.HasPrefix(chunks[0].Text, "Sentence number 1 "))
	assert.True(t, strings.HasSuffix(chunks[3].Text, "Sentence number 20 has exactly ten words in it today."))
}

func TestChunk_Deduplicates(t *testing.T) {
	s := "Alpha beta gamma delta epsilon zeta eta theta iota kappa."
	c := NewSentenceChunker(10, 1, 5)
	chunks, raw := c.Chunk(strings.Join([]string{s, s, s}, " "))

	assert.Equal(t, 4, raw)
	require.Len(t, chunks, 2)
	assert.Equal(t, s, chunks[0].Text)
	assert.Equal(t, s+" "+s, chunks[1].Text)

	seen := map[string]bool{}
	for _, ch := range chunks {
		assert.False(t, seen[ch.Text], "duplicate chunk %q", ch.Text)
		seen[ch.Text] = true
	}
}

func TestChunk_NoOverlap(t *testing.T) {
	c := NewSentenceChunker(20, 0, 1)
	chunks, _ := c.Chunk(tenWordSentences(4))

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "Sentence number 3 "))
}

func TestChunk_Empty(t *testing.T) {
	c := NewSentenceChunker(70, 1, 20)
	chunks, raw := c.Chunk("")
	assert.Empty(t, chunks)
	assert.Zero(t, raw)
}

func TestChunkFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "chunks.txt")
	in := []domain.Chunk{
		{Index: 1, Text: "The CHUNK keyword can appear inside text."},
		{Index: 2, Text: "Second chunk text."},
	}
	require.NoError(t, WriteChunkFile(path, in))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "CHUNK 1\nThe CHUNK keyword can appear inside text.\n\nCHUNK 2\nSecond chunk text.\n\n", string(data))

	out, err := ReadChunkFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadChunkFile_SkipsEmptySections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.txt")
	require.NoError(t, os.WriteFile(path, []byte("preamble ignored\nCHUNK 1\n\nCHUNK 2\n  kept text  \n\n"), 0o644))

	out, err := ReadChunkFile(path)
	require.NoError(t, err)
	assert.Equal(t, []domain.Chunk{{Index: 1, Text: "kept text"}}, out)
}

func TestReadChunkFile_Missing(t *testing.T) {
	_, err := ReadChunkFile(filepath.Join(t.TempDir(), "absent.txt"))
	assert.ErrorIs(t, err, domain.ErrMissingInput)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	transcript := filepath.Join(dir, "lecture.txt")
	chunkPath := filepath.Join(dir, "chunks.txt")
	require.NoError(t, os.WriteFile(transcript, []byte(tenWordSentences(20)+"\n"), 0o644))

	res, err := NewSentenceChunker(70, 1, 20).Run(context.Background(), transcript, chunkPath)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Raw)
	assert.Len(t, res.Chunks, 4)

	back, err := ReadChunkFile(chunkPath)
	require.NoError(t, err)
	assert.Equal(t, res.Chunks, back)
}

func TestRun_MissingTranscript(t *testing.T) {
	dir := t.TempDir()
	_, err := NewSentenceChunker(70, 1, 20).Run(context.Background(), filepath.Join(dir, "none.txt"), filepath.Join(dir, "chunks.txt"))
	assert.ErrorIs(t, err, domain.ErrMissingInput)
}
