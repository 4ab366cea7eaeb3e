// Package semantic provides a nearest-pattern index over the training
// catalog, used by the explain/debug surface to show which authored
// utterances an input resembles.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/philippgille/chromem-go"

	"github.com/tripleminds/intentd/pkg/intent"
)

// ErrNoKnownTerms marks a query whose TF-IDF vector is empty: nothing in the
// input appears in the trained vocabulary, so similarity is undefined.
var ErrNoKnownTerms = errors.New("no known vocabulary terms in text")

// Match is one training pattern ranked by cosine similarity to the query.
type Match struct {
	Pattern    string
	Tag        string
	Similarity float64
}

// PatternIndex is an in-memory vector index over the catalog's training
// patterns, embedded with the serving vectorizer's TF-IDF space so index and
// classifier agree on what "similar" means. Immutable after construction;
// safe for concurrent queries.
type PatternIndex struct {
	collection *chromem.Collection
	size       int
}

// embeddingFunc adapts the vectorizer to chromem's embedding interface.
// TF-IDF vectors are already L2-normalized; a zero vector (no known terms)
// is an error rather than a NaN-producing degenerate embedding.
func embeddingFunc(v *intent.Vectorizer) chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		vec := v.Transform(text)
		out := make([]float32, len(vec))
		var norm float64
		for i, w := range vec {
			out[i] = float32(w)
			norm += w * w
		}
		if math.Sqrt(norm) == 0 {
			return nil, ErrNoKnownTerms
		}
		return out, nil
	}
}

// BuildPatternIndex embeds every training pattern of the catalog. Patterns
// with no known vocabulary terms are skipped; they cannot be queried anyway.
func BuildPatternIndex(ctx context.Context, catalog *intent.Catalog, vectorizer *intent.Vectorizer) (*PatternIndex, error) {
	db := chromem.NewDB()
	collection, err := db.CreateCollection("patterns", nil, embeddingFunc(vectorizer))
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern collection: %w", err)
	}

	var docs []chromem.Document
	i := 0
	for _, in := range catalog.Intents() {
		for _, pattern := range in.Patterns {
			if len(intent.ExtractTerms(pattern)) == 0 {
				continue
			}
			docs = append(docs, chromem.Document{
				ID:       strconv.Itoa(i),
				Content:  pattern,
				Metadata: map[string]string{"tag": in.Tag},
			})
			i++
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("catalog has no indexable patterns")
	}

	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("failed to index patterns: %w", err)
	}

	return &PatternIndex{collection: collection, size: len(docs)}, nil
}

// Size returns the number of indexed patterns.
func (ix *PatternIndex) Size() int {
	return ix.size
}

// Similar returns up to k training patterns nearest to the text. A query
// with no known vocabulary terms returns an empty result, not an error.
func (ix *PatternIndex) Similar(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		k = 5
	}
	if k > ix.size {
		k = ix.size
	}

	results, err := ix.collection.Query(ctx, text, k, nil, nil)
	if err != nil {
		if errors.Is(err, ErrNoKnownTerms) {
			return nil, nil
		}
		return nil, fmt.Errorf("pattern query failed: %w", err)
	}

	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			Pattern:    r.Content,
			Tag:        r.Metadata["tag"],
			Similarity: float64(r.Similarity),
		}
	}
	return matches, nil
}
