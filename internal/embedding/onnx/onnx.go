// Package onnx runs a sentence-transformers model (all-MiniLM-L6-v2 by default)
// in-process through ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	tokenizer "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"lecturetutor/internal/domain"
)

// maxSeqLen matches the sentence-transformers truncation for MiniLM.
const maxSeqLen = 256

// Config locates the model assets.
type Config struct {
	ModelPath      string
	TokenizerPath  string
	SharedLibrary  string
	Dimension      int
	MaxBatchTokens int
}

// Embedder implements domain.Embedder with mean-pooled, normalized token states.
type Embedder struct {
	mu        sync.Mutex
	tok       *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	dimension int
	maxTokens int
}

var _ domain.Embedder = (*Embedder)(nil)

// New loads the tokenizer and model and initializes the runtime environment.
func New(cfg Config) (*Embedder, error) {
	for _, p := range []string{cfg.ModelPath, cfg.TokenizerPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("embedding model asset %s: %w", p, err)
		}
	}
	tok, err := loadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, err
	}

	if cfg.SharedLibrary != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibrary)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if err := opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("failed to set graph optimization: %w", err)
	}
	if err := opts.SetIntraOpNumThreads(0); err != nil {
		return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	maxTokens := cfg.MaxBatchTokens
	if maxTokens <= 0 {
		maxTokens = 6000
	}
	return &Embedder{tok: tok, session: session, dimension: cfg.Dimension, maxTokens: maxTokens}, nil
}

// loadTokenizer reads tokenizer.json and truncates encodings to maxSeqLen
// tokens, counting the [CLS] and [SEP] the post-processor adds.
func loadTokenizer(path string) (*tokenizer.Tokenizer, error) {
	tok, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	tok.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: maxSeqLen,
		Strategy:  tokenizer.LongestFirst,
	})
	return tok, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "onnx" }

// Dimension returns the hidden size of the model.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed returns the embedding of a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch packs texts into batches bounded by the padded token budget.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	encodings := make([]*tokenizer.Encoding, len(texts))
	lengths := make([]int, len(texts))
	for i, t := range texts {
		enc, err := e.tok.EncodeSingle(t, true)
		if err != nil {
			return nil, fmt.Errorf("tokenization failed: %w", err)
		}
		encodings[i] = enc
		lengths[i] = len(enc.GetIds())
	}

	out := make([][]float32, 0, len(texts))
	for _, b := range planBatches(lengths, e.maxTokens) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vecs, err := e.run(encodings[b[0]:b[1]])
		if err != nil {
			return nil, fmt.Errorf("batch failed: %w", err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Close releases the session and the runtime environment.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		_ = e.session.Destroy()
		e.session = nil
	}
	return ort.DestroyEnvironment()
}

func (e *Embedder) run(encodings []*tokenizer.Encoding) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("onnx embedder is closed")
	}

	batch := len(encodings)
	seq := 0
	for _, enc := range encodings {
		seq = max(seq, len(enc.GetIds()))
	}

	ids := make([]int64, batch*seq)
	mask := make([]int64, batch*seq)
	types := make([]int64, batch*seq)
	for i, enc := range encodings {
		tid := enc.GetIds()
		am := enc.GetAttentionMask()
		off := i * seq
		for j := range tid {
			ids[off+j] = int64(tid[j])
			mask[off+j] = int64(am[j])
		}
	}

	shape := ort.NewShape(int64(batch), int64(seq))
	idsT, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsT.Destroy()
	maskT, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskT.Destroy()
	typesT, err := ort.NewTensor(shape, types)
	if err != nil {
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	defer typesT.Destroy()

	outputs := make([]ort.Value, 1)
	if err := e.session.Run([]ort.Value{idsT, maskT, typesT}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer outputs[0].Destroy()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("output tensor is not float32 type")
	}
	s := hidden.GetShape()
	if len(s) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", s)
	}
	dim := int(s[2])
	if e.dimension == 0 {
		e.dimension = dim
	} else if dim != e.dimension {
		return nil, fmt.Errorf("model hidden size %d, configured %d", dim, e.dimension)
	}
	return meanPool(hidden.GetData(), mask, batch, int(s[1]), dim), nil
}

// meanPool averages the token states selected by mask for each row and
// L2-normalizes the result. The returned slices do not alias data.
func meanPool(data []float32, mask []int64, batch, seq, dim int) [][]float32 {
	out := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		acc := make([]float64, dim)
		count := 0.0
		for t := 0; t < seq; t++ {
			if mask[b*seq+t] == 0 {
				continue
			}
			count++
			row := data[(b*seq+t)*dim : (b*seq+t+1)*dim]
			for k, v := range row {
				acc[k] += float64(v)
			}
		}
		vec := make([]float32, dim)
		if count > 0 {
			norm := 0.0
			for k := range acc {
				acc[k] /= count
				norm += acc[k] * acc[k]
			}
			norm = math.Sqrt(norm)
			if norm > 0 {
				for k := range acc {
					vec[k] = float32(acc[k] / norm)
				}
			}
		}
		out[b] = vec
	}
	return out
}

// planBatches groups consecutive items so that batch size times the longest
// member stays within budget. A single oversized item still gets its own batch.
func planBatches(lengths []int, budget int) [][2]int {
	var batches [][2]int
	start, longest := 0, 0
	for i, l := range lengths {
		next := max(longest, l)
		if i > start && (i-start+1)*next > budget {
			batches = append(batches, [2]int{start, i})
			start, next = i, l
		}
		longest = next
	}
	if start < len(lengths) {
		batches = append(batches, [2]int{start, len(lengths)})
	}
	return batches
}
