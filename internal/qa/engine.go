// Package qa answers questions against the indexed lecture.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lecturetutor/internal/config"
	"lecturetutor/internal/domain"
	"lecturetutor/internal/indexer"
	"lecturetutor/internal/logger"
)

// Fixed user-facing replies.
const (
	MsgIncomplete  = "This question is incomplete. Please ask a complete question."
	MsgNoData      = "No lecture data found. Please process a lecture first."
	MsgNotCovered  = "This topic is not covered in the lecture."
	MsgQuota       = "AI quota limit reached. Please try again in a minute."
	MsgUnavailable = "AI service temporarily unavailable."
)

// Strategy selects how the short answer is produced from the retrieved chunk.
type Strategy string

const (
	StrategyExtractive Strategy = "extractive"
	StrategyGenerative Strategy = "generative"
)

// Options are the retrieval gates and answer strategy.
type Options struct {
	Strategy         Strategy
	MinQuestionWords int
	MaxDistance      float64
	MinOverlap       int
	Humanize         bool
}

// OptionsFromConfig converts the answerer configuration.
func OptionsFromConfig(c config.AnswererConfig) Options {
	return Options{
		Strategy:         Strategy(c.Strategy),
		MinQuestionWords: c.MinQuestionWords,
		MaxDistance:      c.MaxDistance,
		MinOverlap:       c.MinOverlap,
		Humanize:         c.Humanize,
	}
}

// OpenFunc loads a persisted index.
type OpenFunc func(path string) (domain.VectorIndex, error)

// LoadParams describes where the lecture memory lives and how to query it.
type LoadParams struct {
	Options   Options
	IndexPath string
	StorePath string
	Open      OpenFunc
	Embedder  domain.Embedder
	// Generator is required by the generative strategy only.
	Generator domain.Generator
}

// Engine holds one loaded lecture. It is immutable after construction; reprocessing
// replaces the engine rather than mutating it.
type Engine struct {
	opts      Options
	embedder  domain.Embedder
	generator domain.Generator
	index     domain.VectorIndex
	chunks    []string
}

// Load opens the index and chunk store. Missing artifacts yield an engine that is
// not Ready; unreadable or misaligned artifacts are an error.
func Load(ctx context.Context, p LoadParams) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := p.Options
	if opts.Strategy == "" {
		opts.Strategy = StrategyExtractive
	}
	switch opts.Strategy {
	case StrategyExtractive:
	case StrategyGenerative:
		if p.Generator == nil {
			return nil, errors.New("generative strategy requires a generator")
		}
	default:
		return nil, fmt.Errorf("unknown answer strategy: %s", opts.Strategy)
	}

	e := &Engine{opts: opts, embedder: p.Embedder, generator: p.Generator}

	index, err := p.Open(p.IndexPath)
	if errors.Is(err, domain.ErrMissingInput) {
		logger.Warn("lecture index not found; retrieval disabled", "index", p.IndexPath)
		return e, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	chunks, err := indexer.ReadStore(p.StorePath)
	if errors.Is(err, domain.ErrMissingInput) {
		logger.Warn("chunk store not found; retrieval disabled", "store", p.StorePath)
		return e, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chunk store: %w", err)
	}

	return NewEngine(opts, p.Embedder, p.Generator, index, chunks)
}

// NewEngine assembles an engine from already loaded parts.
func NewEngine(opts Options, embedder domain.Embedder, generator domain.Generator, index domain.VectorIndex, chunks []string) (*Engine, error) {
	if index != nil && index.Len() != len(chunks) {
		return nil, fmt.Errorf("%w: index has %d rows, chunk store has %d", domain.ErrCorruptIndex, index.Len(), len(chunks))
	}
	if opts.Strategy == "" {
		opts.Strategy = StrategyExtractive
	}
	if index != nil {
		logger.Info("lecture memory loaded", "chunks", len(chunks), "strategy", string(opts.Strategy))
	}
	return &Engine{opts: opts, embedder: embedder, generator: generator, index: index, chunks: chunks}, nil
}

// Ready reports whether lecture memory is loaded.
func (e *Engine) Ready() bool {
	return e != nil && e.index != nil && len(e.chunks) > 0
}

// Chunks returns the number of loaded chunks.
func (e *Engine) Chunks() int {
	if e == nil {
		return 0
	}
	return len(e.chunks)
}

// Incomplete reports whether question has fewer than minWords words.
func Incomplete(question string, minWords int) bool {
	return len(strings.Fields(question)) < minWords
}

// Answer never fails: every fault maps to one of the fixed replies.
// A nil engine has no options and answers MsgNoData.
func (e *Engine) Answer(ctx context.Context, question string) domain.Answer {
	if e == nil {
		return domain.Answer{Short: MsgNoData}
	}
	question = strings.TrimSpace(question)
	if Incomplete(question, e.opts.MinQuestionWords) {
		return domain.Answer{Short: MsgIncomplete}
	}
	if !e.Ready() {
		return domain.Answer{Short: MsgNoData}
	}

	chunk, distance, err := e.retrieve(ctx, question)
	if err != nil {
		logger.Error("retrieval failed", "error", err)
		return domain.Answer{Short: MsgUnavailable}
	}
	logger.Debug("nearest chunk", "distance", distance)
	if float64(distance) > e.opts.MaxDistance {
		return domain.Answer{Short: MsgNotCovered}
	}

	switch e.opts.Strategy {
	case StrategyGenerative:
		return e.generate(ctx, question, chunk)
	default:
		return e.extract(question, chunk)
	}
}

func (e *Engine) retrieve(ctx context.Context, question string) (string, float32, error) {
	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return "", 0, fmt.Errorf("embed question: %w", err)
	}
	hits, err := e.index.Search(vec, 1)
	if err != nil {
		return "", 0, fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		return "", 0, errors.New("search returned no rows")
	}
	pos := hits[0].Position
	if pos < 0 || pos >= len(e.chunks) {
		logger.Warn("index row outside chunk store; using first chunk", "row", pos, "chunks", len(e.chunks))
		pos = 0
	}
	return e.chunks[pos], hits[0].Distance, nil
}

func (e *Engine) extract(question, chunk string) domain.Answer {
	best, score := BestSentence(chunk, question)
	if best == "" || score < e.opts.MinOverlap {
		return domain.Answer{Short: MsgNotCovered}
	}
	if e.opts.Humanize {
		best = Humanize(best)
	}
	return domain.Answer{Short: best, Full: chunk}
}

func (e *Engine) generate(ctx context.Context, question, chunk string) domain.Answer {
	text, err := e.generator.Generate(ctx, question, chunk)
	switch {
	case errors.Is(err, domain.ErrQuota):
		logger.Warn("generator quota exhausted", "error", err)
		return domain.Answer{Short: MsgQuota}
	case err != nil:
		logger.Warn("generator unavailable", "error", err)
		return domain.Answer{Short: MsgUnavailable}
	}
	text = strings.TrimSpace(text)
	if text == "" || strings.Contains(strings.ToLower(text), "not covered") {
		return domain.Answer{Short: MsgNotCovered}
	}
	return domain.Answer{Short: text, Full: chunk}
}
