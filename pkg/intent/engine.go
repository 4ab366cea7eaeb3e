package intent

import (
	"context"
	"log"
	"time"
)

// Exchange is the engine's answer for one utterance. Intent is empty and
// Confidence Unknown when the message failed moderation or the prediction
// was rejected by the confidence policy.
type Exchange struct {
	Reply      string
	Intent     string
	Confidence Confidence
	Allowed    bool
	Latency    time.Duration
}

// Engine runs the classification pipeline over the registry's current
// bundle: moderation gate, normalize, vectorize, predict, confidence gate,
// response selection. All per-request work is pure given a bundle snapshot,
// so Chat is safe for concurrent callers.
type Engine struct {
	registry *Registry
	gate     Gate
	policy   Policy
	selector *Selector
}

// NewEngine wires the pipeline. A nil gate uses the default blocklist gate;
// selector is seeded from the clock.
func NewEngine(registry *Registry, gate Gate, policy Policy) *Engine {
	if gate == nil {
		gate = NewBlocklistGate(nil)
	}
	return &Engine{
		registry: registry,
		gate:     gate,
		policy:   policy,
		selector: NewSelector(time.Now().UnixNano()),
	}
}

// Registry exposes the engine's registry for administrative reload.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Chat answers one utterance. It always produces some reply once a bundle is
// loaded: moderation rejection yields the fixed safe refusal, an untrusted
// or unmatched prediction yields the fallback reply, and any internal
// failure in the numeric pipeline is mapped to the fallback path rather than
// propagated. The only error case is an empty registry.
func (e *Engine) Chat(ctx context.Context, message string, mode Mode) (Exchange, error) {
	start := time.Now()

	if !e.gate.Allow(message, mode) {
		return Exchange{
			Reply:      SafeRefusalReply,
			Confidence: UnknownConfidence(),
			Allowed:    false,
			Latency:    time.Since(start),
		}, nil
	}

	bundle, err := e.registry.Current()
	if err != nil {
		return Exchange{}, err
	}

	pred, ok := e.classify(bundle, message)
	if !ok || !e.policy.Accept(pred.Confidence) {
		return Exchange{
			Reply:      e.selector.Select("", bundle.Catalog),
			Confidence: UnknownConfidence(),
			Allowed:    true,
			Latency:    time.Since(start),
		}, nil
	}

	reply := e.selector.Select(pred.Tag, bundle.Catalog)
	ex := Exchange{
		Reply:      reply,
		Confidence: pred.Confidence,
		Allowed:    true,
	}
	// A tag the catalog cannot answer is reported as absent, matching the
	// fallback reply the selector already chose.
	if bundle.Catalog.Has(pred.Tag) {
		ex.Intent = pred.Tag
	} else {
		ex.Confidence = UnknownConfidence()
	}
	ex.Latency = time.Since(start)
	return ex, nil
}

// classify runs normalize → transform → predict, converting any panic from
// the numeric pipeline into a fallback outcome.
func (e *Engine) classify(bundle *Bundle, message string) (pred Prediction, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] classification failed, serving fallback: %v", r)
			pred, ok = Prediction{}, false
		}
	}()

	vec := bundle.Vectorizer.Transform(message)
	return bundle.Classifier.Predict(vec), true
}
