// Package transcribe turns the lecture audio into a line-per-segment transcript.
package transcribe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lecturetutor/internal/config"
	"lecturetutor/internal/domain"
	"lecturetutor/internal/logger"
)

// Segment represents a portion of transcribed audio.
type Segment struct {
	StartSec float64
	EndSec   float64
	Text     string
}

// Transcript bundles the segments.
type Transcript struct {
	Language string
	Segments []Segment
	Duration time.Duration
}

// Backend is a pluggable transcription backend.
type Backend interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}

// New returns the backend selected by cfg.Type.
func New(cfg config.TranscriberConfig) (Backend, error) {
	switch cfg.Type {
	case "faster-whisper", "":
		fw := cfg.FasterWhisper
		if fw == nil {
			fw = &config.FasterWhisperConfig{}
		}
		return NewFasterWhisperBackend(FasterWhisperOptions{
			Python:      fw.Python,
			Model:       fw.Model,
			Device:      fw.Device,
			ComputeType: fw.ComputeType,
		}), nil
	case "openai":
		o := cfg.OpenAI
		if o == nil {
			return nil, errors.New("openai transcriber config missing")
		}
		key := os.Getenv(o.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("missing API key in env %s", o.APIKeyEnv)
		}
		return NewOpenAIBackend(OpenAIOptions{
			BaseURL: o.BaseURL,
			APIKey:  key,
			Model:   o.Model,
			Timeout: time.Duration(o.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown transcriber: %s", cfg.Type)
	}
}

// Run transcribes audioPath with b and overwrites transcriptPath with the result.
func Run(ctx context.Context, b Backend, audioPath, transcriptPath string) (Transcript, error) {
	if _, err := os.Stat(audioPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Transcript{}, fmt.Errorf("audio %s: %w", audioPath, domain.ErrMissingInput)
		}
		return Transcript{}, err
	}
	logger.Info("transcription started", "audio", audioPath)
	start := time.Now()
	tr, err := b.Transcribe(ctx, audioPath)
	if err != nil {
		return Transcript{}, err
	}
	if err := WriteTranscript(transcriptPath, tr); err != nil {
		return Transcript{}, err
	}
	logger.Info("transcription completed",
		"language", tr.Language,
		"segments", len(tr.Segments),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
		"path", transcriptPath)
	return tr, nil
}

// WriteTranscript writes one trimmed segment per line. Empty segments are skipped.
func WriteTranscript(path string, tr Transcript) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if _, err := w.WriteString(text + "\n"); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
