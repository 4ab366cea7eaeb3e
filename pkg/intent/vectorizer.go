package intent

import "math"

// DefaultMaxFeatures caps the learned vocabulary size. Terms beyond the cap
// are dropped at training time by corpus-frequency ranking.
const DefaultMaxFeatures = 5000

// englishStopWords lists high-frequency function words excluded from the
// vocabulary. Matches the stop-word filtering the training corpus was
// prepared with; changing it invalidates trained artifacts.
var englishStopWords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"all": true, "am": true, "an": true, "and": true, "any": true,
	"are": true, "as": true, "at": true, "be": true, "because": true,
	"been": true, "before": true, "being": true, "below": true, "between": true,
	"both": true, "but": true, "by": true, "can": true, "did": true,
	"do": true, "does": true, "doing": true, "down": true, "during": true,
	"each": true, "few": true, "for": true, "from": true, "further": true,
	"had": true, "has": true, "have": true, "having": true, "he": true,
	"her": true, "here": true, "hers": true, "him": true, "his": true,
	"how": true, "i": true, "if": true, "in": true, "into": true,
	"is": true, "it": true, "its": true, "just": true, "me": true,
	"more": true, "most": true, "my": true, "no": true, "nor": true,
	"not": true, "now": true, "of": true, "off": true, "on": true,
	"once": true, "only": true, "or": true, "other": true, "our": true,
	"out": true, "over": true, "own": true, "same": true, "she": true,
	"so": true, "some": true, "such": true, "than": true, "that": true,
	"the": true, "their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "those": true, "through": true,
	"to": true, "too": true, "under": true, "until": true, "up": true,
	"very": true, "was": true, "we": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "while": true, "who": true,
	"whom": true, "why": true, "will": true, "with": true, "you": true,
	"your": true, "yours": true,
}

// IsStopWord reports whether a token is excluded from the feature space.
func IsStopWord(token string) bool {
	return englishStopWords[token]
}

// ExtractTerms produces the ordered term sequence for an utterance:
// stop-word-filtered unigrams plus adjacent bigrams ("term term").
// Duplicates are preserved so callers can count term frequency.
func ExtractTerms(text string) []string {
	tokens := Tokenize(Normalize(text))
	if len(tokens) == 0 {
		return nil
	}

	kept := tokens[:0]
	for _, tok := range tokens {
		if !IsStopWord(tok) {
			kept = append(kept, tok)
		}
	}

	terms := make([]string, 0, len(kept)*2)
	terms = append(terms, kept...)
	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}
	return terms
}

// Vectorizer maps utterances to fixed-dimensionality TF-IDF feature vectors
// over a vocabulary learned at training time (unigrams + bigrams, bounded by
// MaxFeatures via corpus-frequency ranking).
//
// A Vectorizer is immutable once trained: Transform reads only learned state
// and is safe for concurrent callers without synchronization. It is paired
// with the classifier from the same training run and never mixed across runs.
type Vectorizer struct {
	// Vocabulary maps a term to its feature index in [0, len(IDF)).
	Vocabulary map[string]int

	// IDF holds the smoothed inverse document frequency per feature index:
	// ln((1+N)/(1+df)) + 1.
	IDF []float64
}

// NumFeatures returns the fixed dimensionality of produced vectors.
func (v *Vectorizer) NumFeatures() int {
	return len(v.IDF)
}

// Transform converts an utterance into its TF-IDF feature vector.
// Unknown vocabulary terms contribute zero weight and are never an error.
// The result is L2-normalized; an utterance with no known terms yields the
// zero vector.
func (v *Vectorizer) Transform(text string) []float64 {
	vec := make([]float64, len(v.IDF))

	for _, term := range ExtractTerms(text) {
		idx, ok := v.Vocabulary[term]
		if !ok {
			continue
		}
		vec[idx] += v.IDF[idx] // tf accumulates one IDF unit per occurrence
	}

	var sumSq float64
	for _, w := range vec {
		sumSq += w * w
	}
	if sumSq > 0 {
		invNorm := 1 / math.Sqrt(sumSq)
		for i := range vec {
			vec[i] *= invNorm
		}
	}

	return vec
}
