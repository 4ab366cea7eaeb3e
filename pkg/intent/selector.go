package intent

import (
	"math/rand"
	"sync"
)

// FallbackReply is the fixed generic response used when classification is
// untrusted, the predicted tag is not in the catalog, or the pipeline fails
// internally.
const FallbackReply = "I'm not sure I understood that. Could you rephrase?"

// Selector picks one reply for an accepted intent tag. Selection among
// multiple candidates is randomized; tests assert membership in the intent's
// response set rather than an exact string.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector seeded for non-repeating replies.
func NewSelector(seed int64) *Selector {
	return &Selector{rng: rand.New(rand.NewSource(seed))}
}

// Select returns one reply for the tag. An empty tag (failed moderation or
// rejected confidence) or a tag absent from the catalog resolves to
// FallbackReply. Select never fails: absence of a match is a normal outcome.
func (s *Selector) Select(tag string, catalog *Catalog) string {
	if tag == "" || catalog == nil {
		return FallbackReply
	}

	responses := catalog.Responses(tag)
	if len(responses) == 0 {
		return FallbackReply
	}
	if len(responses) == 1 {
		return responses[0]
	}

	s.mu.Lock()
	i := s.rng.Intn(len(responses))
	s.mu.Unlock()
	return responses[i]
}
