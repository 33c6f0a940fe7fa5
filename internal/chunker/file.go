package chunker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"lecturetutor/internal/domain"
	"lecturetutor/internal/logger"
)

// Marker starts every chunk section in the chunk file, followed by the 1-based ordinal.
const Marker = "CHUNK"

var markerLine = regexp.MustCompile(`^` + Marker + `(?:\s+\d+)?\s*$`)

// Result summarises one chunking run.
type Result struct {
	Raw    int
	Chunks []domain.Chunk
}

// Run reads the transcript, chunks it and writes the chunk file.
func (c *SentenceChunker) Run(ctx context.Context, transcriptPath, chunkPath string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	text, err := LoadTranscript(transcriptPath)
	if err != nil {
		return Result{}, err
	}
	chunks, raw := c.Chunk(text)
	if err := WriteChunkFile(chunkPath, chunks); err != nil {
		return Result{}, err
	}
	logger.Info("chunks written", "raw", raw, "final", len(chunks), "path", chunkPath)
	return Result{Raw: raw, Chunks: chunks}, nil
}

// LoadTranscript reads the whole transcript, trimmed.
func LoadTranscript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("transcript not found: %s: %w", path, domain.ErrMissingInput)
		}
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteChunkFile writes each chunk as "CHUNK <n>\n<text>\n\n", numbered from 1.
func WriteChunkFile(path string, chunks []domain.Chunk) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var b bytes.Buffer
	for i, ch := range chunks {
		fmt.Fprintf(&b, "%s %d\n%s\n\n", Marker, i+1, ch.Text)
	}
	return os.WriteFile(path, b.Bytes(), 0o644)
}

// ReadChunkFile parses a chunk file back into chunks. Sections are delimited by marker
// lines; text is trimmed and empty sections are skipped.
func ReadChunkFile(path string) ([]domain.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("chunk file not found: %s: %w", path, domain.ErrMissingInput)
		}
		return nil, fmt.Errorf("read chunk file: %w", err)
	}

	var (
		chunks  []domain.Chunk
		current []string
		open    bool
	)
	flush := func() {
		if !open {
			return
		}
		text := strings.TrimSpace(strings.Join(current, "\n"))
		if text != "" {
			chunks = append(chunks, domain.Chunk{Index: len(chunks) + 1, Text: text})
		}
		current = current[:0]
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if markerLine.MatchString(strings.TrimSpace(line)) {
			flush()
			open = true
			continue
		}
		if open {
			current = append(current, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan chunk file: %w", err)
	}
	flush()
	return chunks, nil
}
