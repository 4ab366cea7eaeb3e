package intent

import "math"

// ClassifierKind selects the linear model family the artifact was trained
// with. The serving contract is identical across kinds; only confidence
// reporting differs.
type ClassifierKind string

const (
	// KindLogReg is multinomial logistic regression. Exposes calibrated
	// softmax probabilities.
	KindLogReg ClassifierKind = "logreg"

	// KindSGD is a stochastic-gradient linear classifier trained with log
	// loss. Also exposes softmax probabilities.
	KindSGD ClassifierKind = "sgd"

	// KindLinearSVC is a one-vs-rest linear support-vector classifier.
	// Margins are not calibrated probabilities, so confidence is Unknown.
	KindLinearSVC ClassifierKind = "linear_svc"
)

// Prediction is the classifier output: exactly one tag, with confidence
// present only when the model kind exposes probabilities.
type Prediction struct {
	Tag        string
	Confidence Confidence
}

// LinearClassifier is a multi-class linear decision model over the paired
// Vectorizer's feature space. Immutable once trained; Predict is pure and
// safe for concurrent callers.
type LinearClassifier struct {
	Kind ClassifierKind

	// Classes holds the output tag per row of Weights.
	Classes []string

	// Weights is the per-class weight vector, Classes × features.
	Weights [][]float64

	// Intercepts holds the per-class bias term.
	Intercepts []float64
}

// NumFeatures returns the feature dimensionality the model expects.
func (c *LinearClassifier) NumFeatures() int {
	if len(c.Weights) == 0 {
		return 0
	}
	return len(c.Weights[0])
}

// Probabilistic reports whether this model kind exposes class probabilities.
func (c *LinearClassifier) Probabilistic() bool {
	return c.Kind != KindLinearSVC
}

// Predict maps a feature vector to exactly one tag. For probabilistic kinds
// the confidence is the maximum softmax class probability; for the SVC kind
// confidence is Unknown.
func (c *LinearClassifier) Predict(vec []float64) Prediction {
	scores := c.decision(vec)

	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}

	if !c.Probabilistic() {
		return Prediction{Tag: c.Classes[best], Confidence: UnknownConfidence()}
	}

	return Prediction{
		Tag:        c.Classes[best],
		Confidence: KnownConfidence(softmaxMax(scores, best)),
	}
}

// decision computes the raw per-class scores w·x + b. A vector shorter than
// the trained feature space contributes only its present dimensions; extra
// dimensions are ignored. Pairing rules make either case a training bug, but
// Predict must never panic on it.
func (c *LinearClassifier) decision(vec []float64) []float64 {
	scores := make([]float64, len(c.Classes))
	for ci, w := range c.Weights {
		n := len(w)
		if len(vec) < n {
			n = len(vec)
		}
		s := c.Intercepts[ci]
		for j := 0; j < n; j++ {
			if vec[j] != 0 {
				s += w[j] * vec[j]
			}
		}
		scores[ci] = s
	}
	return scores
}

// softmaxMax returns the softmax probability of the given index, computed
// with the max-subtraction trick for numeric stability.
func softmaxMax(scores []float64, idx int) float64 {
	maxS := scores[0]
	for _, s := range scores[1:] {
		if s > maxS {
			maxS = s
		}
	}

	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - maxS)
	}
	return math.Exp(scores[idx]-maxS) / sum
}
