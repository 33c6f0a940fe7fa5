package transcribe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"lecturetutor/internal/domain"
	"lecturetutor/internal/logger"
)

// AudioExtensions lists the accepted recording formats.
var AudioExtensions = []string{".mp3", ".wav", ".m4a"}

// ImportAudio copies the recording at src to dst, replacing any previous lecture.
// The copy goes through a temp file in dst's directory so a failed import
// leaves the old recording intact.
func ImportAudio(src, dst string) error {
	ext := strings.ToLower(filepath.Ext(src))
	if !slices.Contains(AudioExtensions, ext) {
		return fmt.Errorf("%s: %w (want one of %s)", src, domain.ErrUnsupportedAudio, strings.Join(AudioExtensions, ", "))
	}
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("audio %s: %w", src, domain.ErrMissingInput)
		}
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".import-*"+ext)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, in)
	if err != nil {
		_ = tmp.Close()
		return fmt.Errorf("copy audio: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return err
	}
	logger.Info("audio imported", "src", src, "dst", dst, "bytes", n)
	return nil
}
