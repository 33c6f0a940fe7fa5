package qa

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"lecturetutor/internal/chunker"
)

// BestSentence returns the sentence of chunk sharing the most lowercased
// whitespace tokens with question, and that count. The first sentence wins ties.
func BestSentence(chunk, question string) (string, int) {
	q := tokenSet(question)
	best, bestScore := "", 0
	for _, s := range chunker.SplitSentences(chunk) {
		score := 0
		for tok := range tokenSet(s) {
			if _, ok := q[tok]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = s, score
		}
	}
	return strings.TrimSpace(best), bestScore
}

// Humanize prefixes a sentence with a conversational lead-in.
func Humanize(sentence string) string {
	sentence = strings.TrimSpace(sentence)
	if sentence == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(sentence)
	return "Simply put, " + string(unicode.ToLower(r)) + sentence[size:]
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	m := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		m[f] = struct{}{}
	}
	return m
}
