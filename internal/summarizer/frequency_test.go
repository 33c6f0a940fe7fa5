package summarizer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lecturetutor/internal/config"
	"lecturetutor/internal/domain"
)

const lecture = `Okay so. Today we talk about cells and how cells make energy.
The mitochondria converts glucose into energy for the cells.
My cat sleeps on the sofa every single afternoon.
Cells store energy as ATP molecules inside the mitochondria.`

func TestSummarize_PicksTopicalSentencesInOrder(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize(lecture, 3)
	require.NoError(t, err)
	assert.NotContains(t, out, "cat")
	assert.NotContains(t, out, "Okay so.")
	assert.Contains(t, out, "mitochondria converts glucose")
	assert.Contains(t, out, "ATP molecules")
	assert.Less(t, strings.Index(out, "glucose"), strings.Index(out, "ATP"))
}

func TestSummarize_Short(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("  Hi   there. ", 3)
	require.NoError(t, err)
	assert.Equal(t, "Hi there.", out)

	out, err = s.Summarize("", 3)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSummarizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lecture.txt")
	require.NoError(t, os.WriteFile(path, []byte(lecture), 0o644))

	out, err := SummarizeFile(NewFrequencySummarizer(), path, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	_, err = SummarizeFile(NewFrequencySummarizer(), filepath.Join(t.TempDir(), "none"), 1)
	assert.ErrorIs(t, err, domain.ErrMissingInput)
}

func TestNew(t *testing.T) {
	s, err := New(config.SummarizerConfig{Type: "frequency"})
	require.NoError(t, err)
	assert.NotNil(t, s)
	_, err = New(config.SummarizerConfig{Type: "llm"})
	assert.Error(t, err)
}
