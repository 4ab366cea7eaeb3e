// Package intent implements the conversational intent engine: text
// normalization, TF-IDF vectorization, linear intent classification,
// moderation gating, confidence policy and response selection, all served
// from an atomically hot-swappable artifact bundle.
package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeUnicode applies NFKC normalization to fold stylistic Unicode
// variants (fullwidth, mathematical bold, circled letters) to their plain
// equivalents before lexical processing.
func NormalizeUnicode(text string) (normalized string, wasNormalized bool) {
	normalized = norm.NFKC.String(text)
	wasNormalized = normalized != text
	return
}

// Normalize canonicalizes an utterance for vectorization:
// NFKC fold, lower-case, punctuation replaced by a single space,
// whitespace runs collapsed, leading/trailing space trimmed.
//
// Normalize is total (any input, including empty, yields a valid result)
// and idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	folded, _ := NormalizeUnicode(text)
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := true // swallows leading whitespace
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			// Punctuation, symbols and whitespace all collapse to one space.
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}

	return strings.TrimRight(b.String(), " ")
}

// Tokenize splits a normalized utterance into word tokens.
// Callers pass the output of Normalize; raw text works too but keeps
// punctuation glued to words.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Fields(text)
}
