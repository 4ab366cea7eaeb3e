package intent

import "strings"

// Mode is the serving moderation stance.
type Mode string

const (
	// ModeDefault is the medium stance: no lexical restriction beyond the
	// baseline.
	ModeDefault Mode = "default"

	// ModeSafe applies the blocklist check before classification.
	ModeSafe Mode = "safe"

	// ModeNSFW allows adult content; platform policy still applies upstream.
	ModeNSFW Mode = "nsfw"
)

// ParseMode maps a request string to a Mode, defaulting to ModeDefault for
// empty or unrecognized values.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "safe":
		return ModeSafe
	case "nsfw":
		return ModeNSFW
	default:
		return ModeDefault
	}
}

// SafeRefusalReply is the fixed reply for a moderation-rejected message.
// A rejected message never reaches the classifier and carries no intent or
// confidence.
const SafeRefusalReply = "I can't continue with that request. " +
	"Please keep it respectful and within acceptable guidelines."

// Gate decides whether an utterance may proceed to classification.
// It runs before vectorization; implementations must be safe for concurrent
// callers. The interface exists so stronger policy engines can replace the
// lexical baseline without touching the classification pipeline.
type Gate interface {
	Allow(text string, mode Mode) bool
}

// DefaultBlocklist is the baseline blocked-term set for ModeSafe.
// A minimal lexical placeholder, not a complete content-safety system.
var DefaultBlocklist = []string{
	"minors",
	"illegal",
	"exploit",
	"rape",
}

// BlocklistGate rejects ModeSafe messages containing any configured term,
// case-insensitively. ModeDefault and ModeNSFW impose no additional lexical
// restriction.
type BlocklistGate struct {
	blocked []string
}

// NewBlocklistGate builds a gate over the given terms; nil uses
// DefaultBlocklist. Terms are folded to lower case once at construction.
func NewBlocklistGate(terms []string) *BlocklistGate {
	if terms == nil {
		terms = DefaultBlocklist
	}
	blocked := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			blocked = append(blocked, t)
		}
	}
	return &BlocklistGate{blocked: blocked}
}

// Allow implements Gate.
func (g *BlocklistGate) Allow(text string, mode Mode) bool {
	if mode != ModeSafe {
		return true
	}

	lower := strings.ToLower(text)
	for _, term := range g.blocked {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}
