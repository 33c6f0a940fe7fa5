package chunker

import (
	"regexp"
	"strings"

	"lecturetutor/internal/domain"
)

const (
	DefaultWordLimit        = 70
	DefaultOverlapSentences = 1
	DefaultMinWords         = 20
)

var sentenceEnd = regexp.MustCompile(`[.!?]\s+`)

// SentenceChunker greedily packs sentences into chunks of roughly wordLimit words,
// seeding every following chunk with the last overlapSentences sentences.
type SentenceChunker struct {
	wordLimit        int
	overlapSentences int
	minWords         int
}

func NewSentenceChunker(wordLimit, overlapSentences, minWords int) *SentenceChunker {
	if wordLimit <= 0 {
		wordLimit = DefaultWordLimit
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if minWords < 0 {
		minWords = 0
	}
	return &SentenceChunker{
		wordLimit:        wordLimit,
		overlapSentences: overlapSentences,
		minWords:         minWords,
	}
}

// Chunk splits text into the final chunk list and also reports the raw count before filtering.
func (c *SentenceChunker) Chunk(text string) (chunks []domain.Chunk, raw int) {
	rawChunks := c.pack(SplitSentences(text))
	final := c.clean(rawChunks)
	chunks = make([]domain.Chunk, len(final))
	for i, t := range final {
		chunks[i] = domain.Chunk{Index: i + 1, Text: t}
	}
	return chunks, len(rawChunks)
}

// SplitSentences splits on '.', '!' or '?' followed by whitespace. The punctuation stays
// with its sentence and whitespace inside a sentence is collapsed to single spaces.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// loc[0] is the punctuation byte; all three are single-byte runes
		sentences = appendSentence(sentences, text[start:loc[0]+1])
		start = loc[1]
	}
	sentences = appendSentence(sentences, text[start:])
	return sentences
}

func appendSentence(sentences []string, s string) []string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return sentences
	}
	return append(sentences, s)
}

func (c *SentenceChunker) pack(sentences []string) []string {
	var (
		raw     []string
		current []string
		words   int
	)
	for _, s := range sentences {
		current = append(current, s)
		words += WordCount(s)
		if words < c.wordLimit {
			continue
		}
		raw = append(raw, strings.Join(current, " "))

		keep := c.overlapSentences
		if keep > len(current) {
			keep = len(current)
		}
		current = append([]string(nil), current[len(current)-keep:]...)
		words = 0
		for _, o := range current {
			words += WordCount(o)
		}
	}
	if len(current) > 0 {
		raw = append(raw, strings.Join(current, " "))
	}
	return raw
}

func (c *SentenceChunker) clean(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if WordCount(t) < c.minWords {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
