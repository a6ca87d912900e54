package game

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

type GuessEvaluator interface {
	IsMatch(secret, submitted string) bool
}

// WordEvaluator matches a guess against the secret ignoring case and outer
// whitespace. Inner whitespace is significant.
type WordEvaluator struct{}

func NewWordEvaluator() WordEvaluator {
	return WordEvaluator{}
}

func (WordEvaluator) IsMatch(secret, submitted string) bool {
	want := normalizeGuess(secret)
	if want == "" {
		return false
	}
	return want == normalizeGuess(submitted)
}

func normalizeGuess(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFC.String(s)))
}
