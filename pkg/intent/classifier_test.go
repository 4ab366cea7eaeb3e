package intent

import (
	"testing"
)

func testClassifier(kind ClassifierKind) *LinearClassifier {
	return &LinearClassifier{
		Kind:    kind,
		Classes: []string{"goodbye", "greeting", "pricing"},
		Weights: [][]float64{
			{5, 0, 0},
			{0, 5, 0},
			{0, 0, 5},
		},
		Intercepts: []float64{0, 0, 0},
	}
}

func TestPredictArgmax(t *testing.T) {
	clf := testClassifier(KindLogReg)

	tests := []struct {
		name string
		vec  []float64
		want string
	}{
		{"goodbye axis", []float64{1, 0, 0}, "goodbye"},
		{"greeting axis", []float64{0, 1, 0}, "greeting"},
		{"pricing axis", []float64{0, 0, 1}, "pricing"},
		{"mixed leans greeting", []float64{0.2, 0.9, 0.1}, "greeting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := clf.Predict(tt.vec)
			if pred.Tag != tt.want {
				t.Errorf("Predict tag = %q, want %q", pred.Tag, tt.want)
			}
		})
	}
}

func TestPredictProbabilisticConfidence(t *testing.T) {
	for _, kind := range []ClassifierKind{KindLogReg, KindSGD} {
		clf := testClassifier(kind)

		pred := clf.Predict([]float64{0, 1, 0})
		v, ok := pred.Confidence.Value()
		if !ok {
			t.Fatalf("%s: expected a Known confidence", kind)
		}
		if v <= 0 || v > 1 {
			t.Errorf("%s: confidence = %v, want in (0, 1]", kind, v)
		}
		// A strong single-axis score should dominate the softmax.
		if v < 0.9 {
			t.Errorf("%s: confidence = %v, want > 0.9 for a clear margin", kind, v)
		}
	}
}

func TestPredictSVCConfidenceUnknown(t *testing.T) {
	clf := testClassifier(KindLinearSVC)

	pred := clf.Predict([]float64{0, 1, 0})
	if pred.Tag != "greeting" {
		t.Errorf("tag = %q, want greeting", pred.Tag)
	}
	if pred.Confidence.Known() {
		t.Error("linear_svc must report Unknown confidence")
	}
}

func TestPredictZeroVector(t *testing.T) {
	clf := testClassifier(KindLogReg)

	// Equal scores: argmax picks the first class, confidence splits evenly.
	pred := clf.Predict([]float64{0, 0, 0})
	if pred.Tag != "goodbye" {
		t.Errorf("tag = %q, want first class on ties", pred.Tag)
	}
	v, _ := pred.Confidence.Value()
	if v > 0.34 {
		t.Errorf("tied confidence = %v, want about 1/3", v)
	}
}

func TestPredictShortVectorDoesNotPanic(t *testing.T) {
	clf := testClassifier(KindLogReg)

	pred := clf.Predict([]float64{1})
	if pred.Tag == "" {
		t.Error("short vector should still yield a prediction")
	}
}

func TestProbabilistic(t *testing.T) {
	tests := []struct {
		kind ClassifierKind
		want bool
	}{
		{KindLogReg, true},
		{KindSGD, true},
		{KindLinearSVC, false},
	}
	for _, tt := range tests {
		clf := testClassifier(tt.kind)
		if got := clf.Probabilistic(); got != tt.want {
			t.Errorf("Probabilistic(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}
