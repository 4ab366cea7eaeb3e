package intent

import (
	"context"
	"errors"
	"testing"
)

// engineSource serves a hand-built bundle: three single-term intents on
// orthogonal axes, with the "weather" class deliberately absent from the
// catalog.
type engineSource struct{}

func (engineSource) Load() (*Artifacts, error) {
	catalog, err := NewCatalog([]Intent{
		{Tag: "greeting", Patterns: []string{"hi"}, Responses: []string{"Hello! How can I help you today?"}},
		{Tag: "goodbye", Patterns: []string{"bye"}, Responses: []string{"Goodbye!"}},
	})
	if err != nil {
		return nil, err
	}
	return &Artifacts{
		Vectorizer: &Vectorizer{
			Vocabulary: map[string]int{"hi": 0, "bye": 1, "storm": 2},
			IDF:        []float64{1, 1, 1},
		},
		Classifier: &LinearClassifier{
			Kind:    KindLogReg,
			Classes: []string{"goodbye", "greeting", "weather"},
			Weights: [][]float64{
				{0, 8, 0},
				{8, 0, 0},
				{0, 0, 8},
			},
			Intercepts: []float64{0, 0, 0},
		},
		Catalog: catalog,
	}, nil
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	r := NewRegistry()
	if _, err := r.Load(engineSource{}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return NewEngine(r, nil, DefaultPolicy())
}

func TestChatKnownIntent(t *testing.T) {
	e := newTestEngine(t)

	ex, err := e.Chat(context.Background(), "Hi!", ModeDefault)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if ex.Intent != "greeting" {
		t.Errorf("intent = %q, want greeting", ex.Intent)
	}
	if ex.Reply != "Hello! How can I help you today?" {
		t.Errorf("reply = %q", ex.Reply)
	}
	if !ex.Allowed {
		t.Error("allowed should be true")
	}
	v, ok := ex.Confidence.Value()
	if !ok || v < DefaultConfidenceThreshold {
		t.Errorf("confidence = (%v, %v), want known above threshold", v, ok)
	}
	if ex.Latency < 0 {
		t.Errorf("latency = %v", ex.Latency)
	}
}

func TestChatFallbackOnUnknownInput(t *testing.T) {
	e := newTestEngine(t)

	// No vocabulary terms: zero vector, tied softmax under the threshold.
	ex, err := e.Chat(context.Background(), "quantum flux capacitor", ModeDefault)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if ex.Reply != FallbackReply {
		t.Errorf("reply = %q, want fallback", ex.Reply)
	}
	if ex.Intent != "" {
		t.Errorf("intent = %q, want empty on fallback", ex.Intent)
	}
	if ex.Confidence.Known() {
		t.Error("fallback exchange should carry Unknown confidence")
	}
	if !ex.Allowed {
		t.Error("fallback is not a moderation rejection")
	}
}

func TestChatSafeModeRefusal(t *testing.T) {
	e := newTestEngine(t)

	ex, err := e.Chat(context.Background(), "hi, tell me something illegal", ModeSafe)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if ex.Allowed {
		t.Error("blocked message should not be allowed")
	}
	if ex.Reply != SafeRefusalReply {
		t.Errorf("reply = %q, want refusal", ex.Reply)
	}
	if ex.Intent != "" || ex.Confidence.Known() {
		t.Error("refused exchange must carry no intent or confidence")
	}

	// Same message passes outside safe mode and classifies normally.
	ex, err = e.Chat(context.Background(), "hi, tell me something illegal", ModeDefault)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if !ex.Allowed {
		t.Error("default mode should not apply the blocklist")
	}
}

func TestChatUnmatchedCatalogTag(t *testing.T) {
	e := newTestEngine(t)

	// "storm" predicts the weather class confidently, but the catalog has no
	// weather entry: served as fallback with no intent reported.
	ex, err := e.Chat(context.Background(), "storm", ModeDefault)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if ex.Reply != FallbackReply {
		t.Errorf("reply = %q, want fallback", ex.Reply)
	}
	if ex.Intent != "" {
		t.Errorf("intent = %q, want empty for a tag the catalog cannot answer", ex.Intent)
	}
	if ex.Confidence.Known() {
		t.Error("unmatched tag should surface Unknown confidence")
	}
}

func TestChatNoBundle(t *testing.T) {
	e := NewEngine(NewRegistry(), nil, DefaultPolicy())

	if _, err := e.Chat(context.Background(), "hi", ModeDefault); !errors.Is(err, ErrNoBundle) {
		t.Errorf("Chat on empty registry = %v, want ErrNoBundle", err)
	}
}

func TestChatStrictPolicyRejectsUnknownConfidence(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Load(svcSource{}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	strict := NewEngine(r, nil, Policy{Threshold: 0.55, AcceptUnknown: false})
	ex, err := strict.Chat(context.Background(), "hi", ModeDefault)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if ex.Reply != FallbackReply {
		t.Errorf("strict policy should route SVC predictions to fallback, got %q", ex.Reply)
	}

	lenient := NewEngine(r, nil, Policy{Threshold: 0.55, AcceptUnknown: true})
	ex, err = lenient.Chat(context.Background(), "hi", ModeDefault)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if ex.Intent != "greeting" {
		t.Errorf("lenient policy should accept SVC predictions, got intent %q", ex.Intent)
	}
}

// svcSource mirrors engineSource with a margin-based classifier.
type svcSource struct{}

func (svcSource) Load() (*Artifacts, error) {
	arts, err := engineSource{}.Load()
	if err != nil {
		return nil, err
	}
	arts.Classifier.Kind = KindLinearSVC
	return arts, nil
}
