// Package trainer fits the TF-IDF vectorizer and linear intent classifiers
// from an intents catalog and writes the serving artifacts.
package trainer

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/tripleminds/intentd/pkg/intent"
)

// Config holds the training hyperparameters.
type Config struct {
	// Kind selects the classifier family: logreg | linear_svc | sgd.
	Kind intent.ClassifierKind

	// MaxFeatures bounds the learned vocabulary size.
	MaxFeatures int

	// TestSize is the held-out fraction for evaluation, in (0, 1).
	TestSize float64

	// Seed makes splits and stochastic training reproducible.
	Seed int64

	// Epochs and LearningRate drive gradient training. Zero values use the
	// per-kind defaults.
	Epochs       int
	LearningRate float64

	// L2 is the ridge penalty applied to all kinds.
	L2 float64
}

// DefaultConfig mirrors the serving defaults: logistic regression over at
// most 5000 TF-IDF features, 15% held out for evaluation.
func DefaultConfig() Config {
	return Config{
		Kind:        intent.KindLogReg,
		MaxFeatures: intent.DefaultMaxFeatures,
		TestSize:    0.15,
		Seed:        42,
		L2:          1e-4,
	}
}

// Example is one labeled training utterance.
type Example struct {
	Text string
	Tag  string
}

// BuildDataset expands a catalog's patterns into labeled examples.
func BuildDataset(catalog *intent.Catalog) []Example {
	var examples []Example
	for _, in := range catalog.Intents() {
		for _, pattern := range in.Patterns {
			examples = append(examples, Example{Text: pattern, Tag: in.Tag})
		}
	}
	return examples
}

// Result carries the trained pair and its evaluation report.
type Result struct {
	Model  *intent.Model
	Report Report
}

// Train fits the vectorizer and classifier on the catalog's patterns and
// evaluates on a held-out split. The returned artifacts share one feature
// space and are meant to be installed together.
func Train(catalog *intent.Catalog, cfg Config) (*Result, error) {
	examples := BuildDataset(catalog)
	if len(examples) == 0 {
		return nil, fmt.Errorf("catalog has no training patterns")
	}

	train, test := split(examples, cfg.TestSize, cfg.Seed)

	corpus := make([]string, len(train))
	for i, ex := range train {
		corpus[i] = ex.Text
	}
	vectorizer := FitVectorizer(corpus, cfg.MaxFeatures)

	clf, err := fitClassifier(vectorizer, train, cfg)
	if err != nil {
		return nil, err
	}

	report := Evaluate(vectorizer, clf, test)
	report.TrainExamples = len(train)
	report.TestExamples = len(test)

	return &Result{
		Model: &intent.Model{
			Vectorizer: vectorizer,
			Classifier: clf,
			TrainedAt:  time.Now(),
		},
		Report: report,
	}, nil
}

// split shuffles deterministically and holds out testSize per tag where
// possible, so small classes keep at least one training example.
func split(examples []Example, testSize float64, seed int64) (train, test []Example) {
	if testSize <= 0 || testSize >= 1 {
		return examples, nil
	}

	byTag := make(map[string][]Example)
	var tags []string
	for _, ex := range examples {
		if _, seen := byTag[ex.Tag]; !seen {
			tags = append(tags, ex.Tag)
		}
		byTag[ex.Tag] = append(byTag[ex.Tag], ex)
	}
	sort.Strings(tags)

	rng := rand.New(rand.NewSource(seed))
	for _, tag := range tags {
		group := byTag[tag]
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })

		nTest := int(math.Round(float64(len(group)) * testSize))
		if nTest >= len(group) {
			nTest = len(group) - 1
		}
		test = append(test, group[:nTest]...)
		train = append(train, group[nTest:]...)
	}
	return train, test
}

// FitVectorizer learns the TF-IDF vocabulary from a corpus: unigrams +
// bigrams, top maxFeatures terms by total corpus frequency, feature indices
// assigned in lexicographic term order, smoothed IDF.
func FitVectorizer(corpus []string, maxFeatures int) *intent.Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = intent.DefaultMaxFeatures
	}

	totalFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, term := range intent.ExtractTerms(doc) {
			totalFreq[term]++
			if !seen[term] {
				seen[term] = true
				docFreq[term]++
			}
		}
	}

	terms := make([]string, 0, len(totalFreq))
	for term := range totalFreq {
		terms = append(terms, term)
	}

	if len(terms) > maxFeatures {
		// Keep the most frequent terms; ties break lexicographically for
		// reproducible artifacts.
		sort.Slice(terms, func(i, j int) bool {
			if totalFreq[terms[i]] != totalFreq[terms[j]] {
				return totalFreq[terms[i]] > totalFreq[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:maxFeatures]
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	return &intent.Vectorizer{Vocabulary: vocab, IDF: idf}
}

func fitClassifier(v *intent.Vectorizer, train []Example, cfg Config) (*intent.LinearClassifier, error) {
	classes := classLabels(train)
	if len(classes) < 2 {
		return nil, fmt.Errorf("training requires at least 2 intent tags, got %d", len(classes))
	}

	X := make([][]float64, len(train))
	y := make([]int, len(train))
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	for i, ex := range train {
		X[i] = v.Transform(ex.Text)
		y[i] = classIdx[ex.Tag]
	}

	switch cfg.Kind {
	case intent.KindLogReg, "":
		return fitSoftmax(X, y, classes, v.NumFeatures(), cfg, false)
	case intent.KindSGD:
		return fitSoftmax(X, y, classes, v.NumFeatures(), cfg, true)
	case intent.KindLinearSVC:
		return fitLinearSVC(X, y, classes, v.NumFeatures(), cfg)
	default:
		return nil, fmt.Errorf("unsupported classifier kind %q", cfg.Kind)
	}
}

func classLabels(train []Example) []string {
	seen := make(map[string]bool)
	var classes []string
	for _, ex := range train {
		if !seen[ex.Tag] {
			seen[ex.Tag] = true
			classes = append(classes, ex.Tag)
		}
	}
	sort.Strings(classes)
	return classes
}

// fitSoftmax trains multinomial logistic regression. Full-batch gradient
// descent for logreg; per-sample shuffled updates for the sgd kind.
func fitSoftmax(X [][]float64, y []int, classes []string, nFeatures int, cfg Config, stochastic bool) (*intent.LinearClassifier, error) {
	epochs := cfg.Epochs
	lr := cfg.LearningRate
	if epochs == 0 {
		if stochastic {
			epochs = 60
		} else {
			epochs = 400
		}
	}
	if lr == 0 {
		if stochastic {
			lr = 0.5
		} else {
			lr = 1.0
		}
	}

	nClasses := len(classes)
	w := newMatrix(nClasses, nFeatures)
	b := make([]float64, nClasses)

	probs := make([]float64, nClasses)
	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	gradW := newMatrix(nClasses, nFeatures)
	gradB := make([]float64, nClasses)

	for epoch := 0; epoch < epochs; epoch++ {
		if stochastic {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
			for _, i := range order {
				softmaxInto(probs, w, b, X[i])
				for c := 0; c < nClasses; c++ {
					delta := probs[c]
					if c == y[i] {
						delta -= 1
					}
					step := lr * delta
					row := w[c]
					for j, xj := range X[i] {
						if xj != 0 {
							row[j] -= step * xj
						}
					}
					b[c] -= step
					if cfg.L2 > 0 {
						scale := 1 - lr*cfg.L2
						for j := range row {
							row[j] *= scale
						}
					}
				}
			}
			continue
		}

		for c := range gradW {
			gradB[c] = 0
			for j := range gradW[c] {
				gradW[c][j] = 0
			}
		}
		for i := range X {
			softmaxInto(probs, w, b, X[i])
			for c := 0; c < nClasses; c++ {
				delta := probs[c]
				if c == y[i] {
					delta -= 1
				}
				row := gradW[c]
				for j, xj := range X[i] {
					if xj != 0 {
						row[j] += delta * xj
					}
				}
				gradB[c] += delta
			}
		}
		invN := 1 / float64(len(X))
		for c := 0; c < nClasses; c++ {
			row, grad := w[c], gradW[c]
			for j := range row {
				row[j] -= lr * (grad[j]*invN + cfg.L2*row[j])
			}
			b[c] -= lr * gradB[c] * invN
		}
	}

	return &intent.LinearClassifier{
		Kind:       kindOf(cfg.Kind, stochastic),
		Classes:    classes,
		Weights:    w,
		Intercepts: b,
	}, nil
}

func kindOf(kind intent.ClassifierKind, stochastic bool) intent.ClassifierKind {
	if kind != "" {
		return kind
	}
	if stochastic {
		return intent.KindSGD
	}
	return intent.KindLogReg
}

// fitLinearSVC trains one-vs-rest linear SVMs with hinge-loss SGD. Margins
// are not calibrated, so the resulting classifier reports Unknown
// confidence by construction.
func fitLinearSVC(X [][]float64, y []int, classes []string, nFeatures int, cfg Config) (*intent.LinearClassifier, error) {
	epochs := cfg.Epochs
	if epochs == 0 {
		epochs = 80
	}
	lr := cfg.LearningRate
	if lr == 0 {
		lr = 0.3
	}
	l2 := cfg.L2
	if l2 == 0 {
		l2 = 1e-4
	}

	nClasses := len(classes)
	w := newMatrix(nClasses, nFeatures)
	b := make([]float64, nClasses)

	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			for c := 0; c < nClasses; c++ {
				label := -1.0
				if c == y[i] {
					label = 1.0
				}
				row := w[c]
				margin := b[c]
				for j, xj := range X[i] {
					if xj != 0 {
						margin += row[j] * xj
					}
				}
				margin *= label

				scale := 1 - lr*l2
				for j := range row {
					row[j] *= scale
				}
				if margin < 1 {
					for j, xj := range X[i] {
						if xj != 0 {
							row[j] += lr * label * xj
						}
					}
					b[c] += lr * label
				}
			}
		}
	}

	return &intent.LinearClassifier{
		Kind:       intent.KindLinearSVC,
		Classes:    classes,
		Weights:    w,
		Intercepts: b,
	}, nil
}

func softmaxInto(dst []float64, w [][]float64, b []float64, x []float64) {
	maxS := math.Inf(-1)
	for c := range w {
		s := b[c]
		row := w[c]
		for j, xj := range x {
			if xj != 0 {
				s += row[j] * xj
			}
		}
		dst[c] = s
		if s > maxS {
			maxS = s
		}
	}
	var sum float64
	for c := range dst {
		dst[c] = math.Exp(dst[c] - maxS)
		sum += dst[c]
	}
	for c := range dst {
		dst[c] /= sum
	}
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}
