package transcribe

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

//go:embed assets/faster_whisper.py
var fwScript []byte

// FasterWhisperOptions configures the local helper process.
type FasterWhisperOptions struct {
	Python      string
	Model       string
	Device      string // auto|cpu|cuda
	ComputeType string
}

type fasterWhisperBackend struct {
	opts FasterWhisperOptions
}

func NewFasterWhisperBackend(opts FasterWhisperOptions) Backend {
	if opts.Python == "" {
		opts.Python = "python3"
	}
	if opts.Model == "" {
		opts.Model = "base"
	}
	if opts.Device == "" {
		opts.Device = "auto"
	}
	if opts.ComputeType == "" {
		opts.ComputeType = "int8"
	}
	return &fasterWhisperBackend{opts: opts}
}

type fwOut struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (f *fasterWhisperBackend) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	script, err := os.CreateTemp("", "lecturetutor_faster_whisper_*.py")
	if err != nil {
		return Transcript{}, fmt.Errorf("write helper script: %w", err)
	}
	defer os.Remove(script.Name())
	if _, err := script.Write(fwScript); err != nil {
		_ = script.Close()
		return Transcript{}, fmt.Errorf("write helper script: %w", err)
	}
	if err := script.Close(); err != nil {
		return Transcript{}, fmt.Errorf("write helper script: %w", err)
	}

	cmd := exec.CommandContext(ctx, f.opts.Python, script.Name(),
		"--audio", audioPath,
		"--model", f.opts.Model,
		"--device", f.opts.Device,
		"--compute-type", f.opts.ComputeType,
	)
	cmd.Env = os.Environ()
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return Transcript{}, fmt.Errorf("faster-whisper failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return Transcript{}, fmt.Errorf("run helper: %w", err)
	}
	var parsed fwOut
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Transcript{}, fmt.Errorf("parse helper output: %w\n%s", err, string(out))
	}
	tr := Transcript{Language: parsed.Language, Duration: time.Duration(parsed.Duration * float64(time.Second))}
	for _, s := range parsed.Segments {
		tr.Segments = append(tr.Segments, Segment{StartSec: s.Start, EndSec: s.End, Text: strings.TrimSpace(s.Text)})
	}
	return tr, nil
}
