// Package service ties the processing stages and the answer engine to one configuration.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"lecturetutor/internal/chunker"
	"lecturetutor/internal/config"
	"lecturetutor/internal/domain"
	"lecturetutor/internal/embedding"
	"lecturetutor/internal/indexer"
	"lecturetutor/internal/llm/gemini"
	"lecturetutor/internal/logger"
	"lecturetutor/internal/pipeline"
	"lecturetutor/internal/qa"
	"lecturetutor/internal/summarizer"
	"lecturetutor/internal/transcribe"
	"lecturetutor/internal/vectorstore"
)

// LectureService owns the long-lived collaborators for one lecture workspace.
// It is not safe for concurrent use; callers serialize operations.
type LectureService struct {
	cfg        *config.AppConfig
	embedder   domain.Embedder
	generator  domain.Generator
	summarizer domain.Summarizer
	engine     *qa.Engine
	summary    string
}

// NewLectureService creates a service. Nothing is loaded until Reload or a stage runs.
func NewLectureService(cfg *config.AppConfig) (*LectureService, error) {
	sum, err := summarizer.New(cfg.Summarizer)
	if err != nil {
		return nil, err
	}
	return &LectureService{cfg: cfg, summarizer: sum}, nil
}

// Config returns the configuration the service was built with.
func (s *LectureService) Config() *config.AppConfig { return s.cfg }

// Transcribe runs the speech recognition stage.
func (s *LectureService) Transcribe(ctx context.Context) (transcribe.Transcript, error) {
	backend, err := transcribe.New(s.cfg.Transcriber)
	if err != nil {
		return transcribe.Transcript{}, err
	}
	return transcribe.Run(ctx, backend, s.cfg.Paths.Audio, s.cfg.Paths.Transcript)
}

// ImportAudio replaces the lecture recording with the file at src.
func (s *LectureService) ImportAudio(src string) error {
	return transcribe.ImportAudio(src, s.cfg.Paths.Audio)
}

// Chunk runs the chunking stage.
func (s *LectureService) Chunk(ctx context.Context) (chunker.Result, error) {
	c := s.cfg.Chunker
	return chunker.NewSentenceChunker(c.WordLimit, c.Overlap(), c.MinChunkWords()).
		Run(ctx, s.cfg.Paths.Transcript, s.cfg.Paths.Chunks)
}

// Index runs the index build stage.
func (s *LectureService) Index(ctx context.Context) (indexer.Result, error) {
	emb, err := s.ensureEmbedder(ctx)
	if err != nil {
		return indexer.Result{}, err
	}
	create := func(dim int) (domain.VectorIndex, error) {
		return vectorstore.Create(s.cfg.VectorStore, dim)
	}
	return indexer.New(emb, create, s.cfg.Indexer.MinChunkWords()).
		Run(ctx, s.cfg.Paths.Chunks, s.cfg.Paths.Index, s.cfg.Paths.ChunkStore)
}

// Process runs the pipeline from the given stage. It does not reload the engine.
func (s *LectureService) Process(ctx context.Context, from pipeline.Stage, progress pipeline.ProgressFunc) error {
	p, err := pipeline.New(map[pipeline.Stage]pipeline.StageFunc{
		pipeline.StageTranscribe: func(ctx context.Context) error {
			_, err := s.Transcribe(ctx)
			return err
		},
		pipeline.StageChunk: func(ctx context.Context) error {
			_, err := s.Chunk(ctx)
			return err
		},
		pipeline.StageIndex: func(ctx context.Context) error {
			_, err := s.Index(ctx)
			return err
		},
	}, progress)
	if err != nil {
		return err
	}
	return p.Run(ctx, from)
}

// Reload replaces the answer engine and summary from the artifacts on disk.
func (s *LectureService) Reload(ctx context.Context) error {
	opts := qa.OptionsFromConfig(s.cfg.Answerer)

	emb, err := s.ensureEmbedder(ctx)
	if err != nil {
		if s.artifactsExist() {
			return fmt.Errorf("embedder: %w", err)
		}
		// no lecture yet; answering only needs the guards
		logger.Warn("embedder unavailable and no lecture memory", "error", err)
		s.engine, err = qa.NewEngine(opts, nil, nil, nil, nil)
		s.summary = ""
		return err
	}

	if opts.Strategy == qa.StrategyGenerative && s.generator == nil {
		gen, err := gemini.New(ctx, gemini.Config{
			APIKey:            os.Getenv(s.cfg.Gemini.APIKeyEnv),
			Model:             s.cfg.Gemini.Model,
			Temperature:       s.cfg.Gemini.Temperature,
			Timeout:           time.Duration(s.cfg.Gemini.TimeoutSecs) * time.Second,
			RequestsPerMinute: s.cfg.Gemini.RequestsPerMinute,
		})
		if err != nil {
			return fmt.Errorf("generator: %w", err)
		}
		s.generator = gen
	}

	engine, err := qa.Load(ctx, qa.LoadParams{
		Options:   opts,
		IndexPath: s.cfg.Paths.Index,
		StorePath: s.cfg.Paths.ChunkStore,
		Open: func(path string) (domain.VectorIndex, error) {
			return vectorstore.Open(s.cfg.VectorStore, path)
		},
		Embedder:  emb,
		Generator: s.generator,
	})
	if err != nil {
		return err
	}
	s.engine = engine
	s.summary = ""
	if engine.Ready() {
		s.summary = s.summarize()
	}
	return nil
}

// Ask answers a question with the currently loaded engine.
func (s *LectureService) Ask(ctx context.Context, question string) domain.Answer {
	if qa.Incomplete(question, s.cfg.Answerer.MinQuestionWords) {
		return domain.Answer{Short: qa.MsgIncomplete}
	}
	if s.engine == nil {
		if err := s.Reload(ctx); err != nil {
			logger.Error("load lecture memory", "error", err)
			return domain.Answer{Short: qa.MsgUnavailable}
		}
	}
	return s.engine.Answer(ctx, question)
}

// Ready reports whether lecture memory is loaded.
func (s *LectureService) Ready() bool { return s.engine.Ready() }

// Chunks returns the number of loaded chunks.
func (s *LectureService) Chunks() int { return s.engine.Chunks() }

// Summary returns the transcript summary computed at the last Reload.
func (s *LectureService) Summary() string { return s.summary }

// Close releases model and client resources.
func (s *LectureService) Close() error {
	var errs []error
	if s.embedder != nil {
		errs = append(errs, embedding.Close(s.embedder))
	}
	if c, ok := s.generator.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (s *LectureService) ensureEmbedder(ctx context.Context) (domain.Embedder, error) {
	if s.embedder != nil {
		return s.embedder, nil
	}
	emb, err := embedding.New(ctx, s.cfg.Embedder)
	if err != nil {
		return nil, err
	}
	s.embedder = emb
	return emb, nil
}

func (s *LectureService) artifactsExist() bool {
	for _, p := range []string{s.cfg.Paths.Index, s.cfg.Paths.ChunkStore} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

func (s *LectureService) summarize() string {
	out, err := summarizer.SummarizeFile(s.summarizer, s.cfg.Paths.Transcript, s.cfg.Summarizer.MaxSentences)
	if err != nil {
		logger.Debug("no summary", "error", err)
		return ""
	}
	return out
}
