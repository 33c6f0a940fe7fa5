// Package embedding builds the configured text embedder.
package embedding

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"lecturetutor/internal/config"
	"lecturetutor/internal/domain"
	"lecturetutor/internal/embedding/gemini"
	"lecturetutor/internal/embedding/hash"
	"lecturetutor/internal/embedding/onnx"
	"lecturetutor/internal/embedding/openai"
)

// New returns the embedder selected by cfg.Type.
func New(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "onnx", "":
		if cfg.ONNX == nil {
			return nil, fmt.Errorf("onnx embedder config missing")
		}
		return onnx.New(onnx.Config{
			ModelPath:      cfg.ONNX.ModelPath,
			TokenizerPath:  cfg.ONNX.TokenizerPath,
			SharedLibrary:  cfg.ONNX.SharedLibrary,
			Dimension:      cfg.ONNX.Dimension,
			MaxBatchTokens: cfg.ONNX.MaxBatchTokens,
		})
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.OpenAI.BatchSize,
		})
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini embedder config missing")
		}
		return gemini.New(ctx, os.Getenv(cfg.Gemini.APIKeyEnv), cfg.Gemini.Model)
	case "hash":
		dim := 512
		if cfg.Hash != nil && cfg.Hash.Dimension > 0 {
			dim = cfg.Hash.Dimension
		}
		return hash.NewEmbedder(dim)
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// Close releases embedder resources when the implementation holds any.
func Close(e domain.Embedder) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
