package tokenize

import "strings"

// #region stopwords
// englishStopwords are common English words excluded from keyword lists.
var englishStopwords = []string{
	"the", "a", "an", "is", "are", "was", "were", "do", "does", "did",
	"have", "has", "had", "be", "been", "will", "would", "could", "should",
	"can", "not", "no", "and", "or", "but", "if", "then", "than", "so",
	"as", "at", "by", "for", "from", "in", "into", "of", "on", "to",
	"with", "about", "it", "its", "this", "that", "what", "which", "you",
	"me", "i", "my", "your", "we", "they",
}

// StopSet merges the built-in English stop-words with extra entries into a
// lower-cased lookup set.
func StopSet(extra []string) map[string]bool {
	set := make(map[string]bool, len(englishStopwords)+len(extra))
	for _, w := range englishStopwords {
		set[w] = true
	}
	for _, w := range extra {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			set[w] = true
		}
	}
	return set
}

// Shared returns the count of tokens present in both slices, compared
// case-insensitively.
func Shared(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[strings.ToLower(t)] = true
	}
	count := 0
	for _, t := range b {
		if set[strings.ToLower(t)] {
			count++
		}
	}
	return count
}

// #endregion stopwords
