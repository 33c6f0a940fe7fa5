package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturetutor/internal/config"
	"lecturetutor/internal/domain"
	"lecturetutor/internal/pipeline"
	"lecturetutor/internal/qa"
)

var lectureSentences = []string{
	"Welcome to the biology lecture on how living cells produce and manage their energy every day.",
	"The mitochondria is the powerhouse of the cell.",
	"Inside the mitochondria glucose is broken down through cellular respiration to release usable chemical energy.",
	"That energy is captured in molecules of ATP which the cell spends on movement, growth and repair.",
	"Plants additionally rely on chloroplasts where photosynthesis turns sunlight, water and carbon dioxide into sugar.",
	"Next week we will look at how cells divide through mitosis and meiosis in more detail.",
}

// testConfig points every path into a temp dir and fakes the transcription helper
// with a script that prints a canned faster-whisper result.
func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script interpreter stub")
	}
	dir := t.TempDir()

	type seg struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	}
	out := struct {
		Language string `json:"language"`
		Segments []seg  `json:"segments"`
	}{Language: "en"}
	for i, s := range lectureSentences {
		out.Segments = append(out.Segments, seg{Start: float64(i), End: float64(i + 1), Text: " " + s})
	}
	payload, err := json.Marshal(out)
	require.NoError(t, err)
	payloadPath := filepath.Join(dir, "helper.json")
	require.NoError(t, os.WriteFile(payloadPath, payload, 0o644))
	python := filepath.Join(dir, "python")
	require.NoError(t, os.WriteFile(python, []byte(fmt.Sprintf("#!/bin/sh\ncat %q\n", payloadPath)), 0o755))

	cfg := config.Default()
	cfg.Paths = config.PathsConfig{
		Audio:      filepath.Join(dir, "audio", "lecture.mp3"),
		Transcript: filepath.Join(dir, "transcripts", "lecture.txt"),
		Chunks:     filepath.Join(dir, "transcripts", "chunks.txt"),
		ChunkStore: filepath.Join(dir, "vectors", "chunks_store.txt"),
		Index:      filepath.Join(dir, "vectors", "index.flat"),
	}
	cfg.Transcriber.FasterWhisper.Python = python
	cfg.Embedder = config.EmbedderConfig{Type: "hash", Hash: &config.HashEmbedderConfig{Dimension: 512}}
	// bag-of-words vectors sit further apart than sentence embeddings
	cfg.Answerer.MaxDistance = 1.9
	return cfg
}

func writeAudio(t *testing.T, cfg *config.AppConfig) {
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Paths.Audio), 0o755))
	require.NoError(t, os.WriteFile(cfg.Paths.Audio, []byte("ID3"), 0o644))
}

func TestProcessThenAsk(t *testing.T) {
	cfg := testConfig(t)
	writeAudio(t, cfg)
	svc, err := NewLectureService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	var stages []pipeline.Stage
	require.NoError(t, svc.Process(context.Background(), pipeline.StageTranscribe, func(st pipeline.Stage, done, total int) {
		if done < total {
			stages = append(stages, st)
		}
	}))
	assert.Equal(t, pipeline.Stages, stages)

	transcript, err := os.ReadFile(cfg.Paths.Transcript)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(lectureSentences, "\n")+"\n", string(transcript))

	require.NoError(t, svc.Reload(context.Background()))
	require.True(t, svc.Ready())
	assert.Positive(t, svc.Chunks())
	assert.NotEmpty(t, svc.Summary())

	got := svc.Ask(context.Background(), "What is the powerhouse of the cell?")
	assert.Equal(t, "The mitochondria is the powerhouse of the cell.", got.Short)
	assert.Contains(t, got.Full, got.Short)

	assert.Equal(t, qa.MsgIncomplete, svc.Ask(context.Background(), "ok").Short)
}

func TestProcess_MissingAudioStopsAtTranscribe(t *testing.T) {
	cfg := testConfig(t)
	svc, err := NewLectureService(cfg)
	require.NoError(t, err)

	err = svc.Process(context.Background(), pipeline.StageTranscribe, nil)
	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageTranscribe, se.Stage)
	assert.ErrorIs(t, err, domain.ErrMissingInput)
	assert.NoFileExists(t, cfg.Paths.Chunks)
}

func TestProcess_ShortTranscriptFailsAtIndex(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Paths.Transcript), 0o755))
	require.NoError(t, os.WriteFile(cfg.Paths.Transcript, []byte("Photosynthesis converts light into energy. Plants use chlorophyll."), 0o644))
	svc, err := NewLectureService(cfg)
	require.NoError(t, err)

	err = svc.Process(context.Background(), pipeline.StageChunk, nil)
	var se *pipeline.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, pipeline.StageIndex, se.Stage)
	assert.ErrorIs(t, err, domain.ErrNoChunks)
}

func TestAsk_WithoutLecture(t *testing.T) {
	cfg := testConfig(t)
	svc, err := NewLectureService(cfg)
	require.NoError(t, err)

	got := svc.Ask(context.Background(), "What is the powerhouse of the cell?")
	assert.Equal(t, domain.Answer{Short: qa.MsgNoData}, got)
	assert.False(t, svc.Ready())
	assert.Empty(t, svc.Summary())
}

func TestReload_UnavailableEmbedderWithoutLecture(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedder = config.EmbedderConfig{Type: "onnx", ONNX: &config.ONNXEmbedderConfig{ModelPath: filepath.Join(t.TempDir(), "missing.onnx")}}
	svc, err := NewLectureService(cfg)
	require.NoError(t, err)

	require.NoError(t, svc.Reload(context.Background()))
	assert.Equal(t, qa.MsgNoData, svc.Ask(context.Background(), "What is the powerhouse of the cell?").Short)
}

func TestAsk_IncompleteWhenEngineCannotLoad(t *testing.T) {
	cfg := testConfig(t)
	cfg.Answerer.Strategy = string(qa.StrategyGenerative)
	cfg.Gemini.APIKeyEnv = "LECTURETUTOR_TEST_UNSET_KEY"
	t.Setenv(cfg.Gemini.APIKeyEnv, "")
	svc, err := NewLectureService(cfg)
	require.NoError(t, err)

	assert.Equal(t, domain.Answer{Short: qa.MsgIncomplete}, svc.Ask(context.Background(), "ok"))
	assert.Equal(t, domain.Answer{Short: qa.MsgUnavailable}, svc.Ask(context.Background(), "What is the powerhouse of the cell?"))
}

func TestImportAudioThenProcess(t *testing.T) {
	cfg := testConfig(t)
	src := filepath.Join(t.TempDir(), "recording.m4a")
	require.NoError(t, os.WriteFile(src, []byte("ftyp"), 0o644))
	svc, err := NewLectureService(cfg)
	require.NoError(t, err)
	defer svc.Close()

	require.ErrorIs(t, svc.ImportAudio(filepath.Join(t.TempDir(), "notes.txt")), domain.ErrUnsupportedAudio)
	require.NoError(t, svc.ImportAudio(src))
	assert.FileExists(t, cfg.Paths.Audio)

	require.NoError(t, svc.Process(context.Background(), pipeline.StageTranscribe, nil))
	require.NoError(t, svc.Reload(context.Background()))
	assert.True(t, svc.Ready())
}
