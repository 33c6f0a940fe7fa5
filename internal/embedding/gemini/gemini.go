package gemini

import (
	"context"
	"errors"
	"fmt"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"lecturetutor/internal/domain"
	llm "lecturetutor/internal/llm/gemini"
)

// maxBatch is the API limit on contents per BatchEmbedContents request.
const maxBatch = 100

type batchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Embedder embeds text with a Google embedding model.
type Embedder struct {
	client    *genai.Client
	model     string
	dimension int
	embed     batchFunc
}

var _ domain.Embedder = (*Embedder)(nil)

// New creates an embedder for model using apiKey.
func New(ctx context.Context, apiKey, model string) (*Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	em := client.EmbeddingModel(model)
	e := &Embedder{
		client: client,
		model:  model,
		embed: func(ctx context.Context, texts []string) ([][]float32, error) {
			b := em.NewBatch()
			for _, t := range texts {
				b.AddContent(genai.Text(t))
			}
			res, err := em.BatchEmbedContents(ctx, b)
			if err != nil {
				return nil, err
			}
			out := make([][]float32, len(res.Embeddings))
			for i, v := range res.Embeddings {
				if v == nil {
					return nil, fmt.Errorf("no embedding returned at %d", i)
				}
				out[i] = v.Values
			}
			return out, nil
		},
	}
	return e, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "gemini" }

// Dimension is known after the first call.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns the embedding of a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in order, maxBatch at a time.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("gemini embeddings: %w", llm.Classify(err))
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("gemini embeddings: got %d vectors for %d inputs", len(vecs), end-start)
		}
		for _, v := range vecs {
			if e.dimension == 0 {
				e.dimension = len(v)
			}
			if len(v) != e.dimension {
				return nil, fmt.Errorf("gemini embeddings: dimension %d, expected %d", len(v), e.dimension)
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Close releases the client.
func (e *Embedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
