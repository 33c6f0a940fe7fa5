// Package summarizer produces the short lecture overview shown in the chat header.
package summarizer

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"lecturetutor/internal/chunker"
	"lecturetutor/internal/config"
	"lecturetutor/internal/domain"
)

// minSentenceWords keeps greetings and fillers ("Okay.", "Right, so.") out of the summary.
const minSentenceWords = 5

// FrequencySummarizer ranks transcript sentences by content-word frequency.
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

var _ domain.Summarizer = (*FrequencySummarizer)(nil)

// New returns the summarizer selected by cfg.Type.
func New(cfg config.SummarizerConfig) (domain.Summarizer, error) {
	switch cfg.Type {
	case "frequency", "":
		return NewFrequencySummarizer(), nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Type)
	}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Summarize returns up to maxSentences sentences of text in their original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	var sentences []string
	for _, sent := range chunker.SplitSentences(text) {
		if chunker.WordCount(sent) >= minSentenceWords {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) == 0 {
		return strings.Join(strings.Fields(text), " "), nil
	}

	freq := map[string]float64{}
	maxF := 0.0
	for _, sent := range sentences {
		for _, tok := range s.contentTokens(sent) {
			freq[tok]++
			maxF = math.Max(maxF, freq[tok])
		}
	}

	scores := make([]float64, len(sentences))
	for i, sent := range sentences {
		toks := s.contentTokens(sent)
		if len(toks) == 0 || maxF == 0 {
			continue
		}
		for _, tok := range toks {
			scores[i] += freq[tok] / maxF
		}
		// damp the advantage of long run-on sentences
		scores[i] /= math.Sqrt(float64(len(toks)))
	}

	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	if maxSentences > len(order) {
		maxSentences = len(order)
	}
	selected := append([]int(nil), order[:maxSentences]...)
	sort.Ints(selected)

	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

// SummarizeFile summarizes the transcript at path.
func SummarizeFile(s domain.Summarizer, path string, maxSentences int) (string, error) {
	text, err := chunker.LoadTranscript(path)
	if err != nil {
		return "", err
	}
	return s.Summarize(text, maxSentences)
}

func (s *FrequencySummarizer) contentTokens(text string) []string {
	all := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := all[:0]
	for _, tok := range all {
		if _, stop := s.stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		// spoken fillers common in lecture transcripts
		"um", "uh", "okay", "ok", "yeah", "like", "right", "you", "we", "i", "know", "going", "gonna", "let's", "let’s", "actually", "basically",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
