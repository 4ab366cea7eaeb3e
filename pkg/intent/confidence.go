package intent

// DefaultConfidenceThreshold is the minimum top-class probability required
// to trust a prediction.
const DefaultConfidenceThreshold = 0.55

// Confidence is the classifier's calibration for its chosen tag.
// It is a tagged Known/Unknown value: classifier kinds that expose no
// probability estimate (the margin-based linear SVC) report Unknown rather
// than a fabricated number.
type Confidence struct {
	value float64
	known bool
}

// KnownConfidence wraps a probability in [0,1].
func KnownConfidence(v float64) Confidence {
	return Confidence{value: v, known: true}
}

// UnknownConfidence marks a prediction without a probability estimate.
func UnknownConfidence() Confidence {
	return Confidence{}
}

// Value returns the probability and whether one is present.
func (c Confidence) Value() (float64, bool) {
	return c.value, c.known
}

// Known reports whether a probability estimate is present.
func (c Confidence) Known() bool {
	return c.known
}

// Policy decides whether a prediction is trusted or routed to the fallback
// reply.
type Policy struct {
	// Threshold is the minimum Known confidence to accept.
	Threshold float64

	// AcceptUnknown controls the Unknown-confidence arm. Some classifier
	// kinds never expose probabilities; with AcceptUnknown true (the
	// default) their predictions pass the gate, with false they are always
	// routed to fallback. This is a deliberate configuration choice, not
	// implicit behavior.
	AcceptUnknown bool
}

// DefaultPolicy returns the serving default: threshold 0.55, Unknown
// confidence accepted.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:     DefaultConfidenceThreshold,
		AcceptUnknown: true,
	}
}

// Accept reports whether the prediction should be trusted. A rejected
// prediction must be served the fallback reply with no intent reported.
func (p Policy) Accept(c Confidence) bool {
	v, ok := c.Value()
	if !ok {
		return p.AcceptUnknown
	}
	return v >= p.Threshold
}
