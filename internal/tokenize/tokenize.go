package tokenize

// #region imports
import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// #endregion

// #region interface

// Tokenizer segments free text into word tokens. Separators (spaces,
// punctuation, symbols) never appear in the output.
type Tokenizer interface {
	Tokenize(text string) []string
}

// #endregion

// #region lexicon

// Lexicon segments text by forward maximum matching against a fixed
// vocabulary. Runs that match no entry are grouped by script class and
// handed to split, which defaults to keeping the run whole.
type Lexicon struct {
	words  map[string]bool
	maxLen int // longest entry, in runes
	split  func(string) []string
}

// NewLexicon builds a lexicon tokenizer over vocab. Entries are matched
// case-insensitively; empty entries are ignored.
func NewLexicon(vocab []string) *Lexicon {
	l := &Lexicon{words: make(map[string]bool, len(vocab))}
	for _, w := range vocab {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		l.words[w] = true
		if n := utf8.RuneCountInString(w); n > l.maxLen {
			l.maxLen = n
		}
	}
	return l
}

// Contains reports whether w is a vocabulary entry.
func (l *Lexicon) Contains(w string) bool {
	return l.words[strings.ToLower(w)]
}

// Tokenize implements Tokenizer.
func (l *Lexicon) Tokenize(text string) []string {
	runes := []rune(text)
	lower := []rune(strings.ToLower(text))
	if len(lower) != len(runes) {
		// case folding changed the rune count; match on the original
		lower = runes
	}

	var out []string
	var pending []rune
	pendingClass := classSep

	flush := func() {
		if len(pending) == 0 {
			return
		}
		out = append(out, l.splitRun(string(pending))...)
		pending = pending[:0]
		pendingClass = classSep
	}

	for i := 0; i < len(runes); {
		if n := l.longestMatch(lower, i); n > 0 {
			flush()
			out = append(out, string(runes[i:i+n]))
			i += n
			continue
		}
		c := classOf(runes[i])
		if c == classSep {
			flush()
			i++
			continue
		}
		if c != pendingClass {
			flush()
			pendingClass = c
		}
		pending = append(pending, runes[i])
		i++
	}
	flush()
	return out
}

func (l *Lexicon) longestMatch(lower []rune, start int) int {
	limit := l.maxLen
	if rest := len(lower) - start; rest < limit {
		limit = rest
	}
	for n := limit; n > 0; n-- {
		if l.words[string(lower[start:start+n])] {
			return n
		}
	}
	return 0
}

func (l *Lexicon) splitRun(run string) []string {
	if l.split == nil || classOf([]rune(run)[0]) != classHan {
		return []string{run}
	}
	var out []string
	for _, t := range l.split(run) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return []string{run}
	}
	return out
}

// #endregion lexicon

// #region classes

type runeClass int

const (
	classSep runeClass = iota
	classHan
	classWord
)

func classOf(r rune) runeClass {
	switch {
	case unicode.Is(unicode.Han, r):
		return classHan
	case unicode.IsLetter(r) || unicode.IsDigit(r):
		return classWord
	default:
		return classSep
	}
}

// #endregion classes

// #region keywords

// Keywords filters tokens down to ordered, de-duplicated keywords: tokens of
// a single code point, stop-words and punctuation-only tokens are dropped.
func Keywords(tokens []string, stop map[string]bool) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if utf8.RuneCountInString(t) < 2 || !hasWordRune(t) {
			continue
		}
		key := strings.ToLower(t)
		if stop[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if classOf(r) != classSep {
			return true
		}
	}
	return false
}

// #endregion keywords
