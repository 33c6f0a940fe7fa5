// Package pipeline runs the lecture processing stages in order:
// transcribe, chunk, index.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lecturetutor/internal/logger"
)

// Stage names one processing step.
type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageChunk      Stage = "chunk"
	StageIndex      Stage = "index"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageTranscribe, StageChunk, StageIndex}

// ParseStage accepts a stage name, case-insensitively.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q (want one of transcribe, chunk, index)", s)
}

// StageError reports which stage stopped the run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// StageFunc performs one stage.
type StageFunc func(ctx context.Context) error

// ProgressFunc is called before a stage starts (done < total) and once after the
// last stage completes (done == total).
type ProgressFunc func(stage Stage, done, total int)

// Pipeline holds the stage implementations.
type Pipeline struct {
	funcs    map[Stage]StageFunc
	progress ProgressFunc
}

// New creates a pipeline. Every stage in Stages must be provided.
func New(funcs map[Stage]StageFunc, progress ProgressFunc) (*Pipeline, error) {
	for _, st := range Stages {
		if funcs[st] == nil {
			return nil, fmt.Errorf("pipeline: no implementation for stage %s", st)
		}
	}
	return &Pipeline{funcs: funcs, progress: progress}, nil
}

// Run executes the stages from `from` onwards. The first failure stops the run
// and is returned as *StageError; artifacts written by earlier stages are kept.
func (p *Pipeline) Run(ctx context.Context, from Stage) error {
	start := -1
	for i, st := range Stages {
		if st == from {
			start = i
		}
	}
	if start < 0 {
		return fmt.Errorf("unknown stage %q", from)
	}
	todo := Stages[start:]

	log := logger.With("run_id", uuid.NewString())
	log.Info("pipeline started", "from", string(from), "stages", len(todo))
	began := time.Now()

	for i, st := range todo {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: st, Err: err}
		}
		p.report(st, i, len(todo))
		stageStart := time.Now()
		log.Info("stage started", "stage", string(st))
		if err := p.funcs[st](ctx); err != nil {
			log.Error("stage failed", "stage", string(st), "error", err)
			return &StageError{Stage: st, Err: err}
		}
		log.Info("stage completed", "stage", string(st), "elapsed", time.Since(stageStart).Round(time.Millisecond).String())
	}
	p.report(todo[len(todo)-1], len(todo), len(todo))
	log.Info("pipeline completed", "elapsed", time.Since(began).Round(time.Millisecond).String())
	return nil
}

func (p *Pipeline) report(st Stage, done, total int) {
	if p.progress != nil {
		p.progress(st, done, total)
	}
}
