package trainer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tripleminds/intentd/pkg/intent"
)

// ClassMetrics holds per-tag evaluation counts.
type ClassMetrics struct {
	Tag       string
	Support   int
	Correct   int
	Predicted int
}

// Precision is Correct / Predicted, zero when the tag was never predicted.
func (m ClassMetrics) Precision() float64 {
	if m.Predicted == 0 {
		return 0
	}
	return float64(m.Correct) / float64(m.Predicted)
}

// Recall is Correct / Support, zero for an empty class.
func (m ClassMetrics) Recall() float64 {
	if m.Support == 0 {
		return 0
	}
	return float64(m.Correct) / float64(m.Support)
}

// Report summarizes held-out evaluation of a trained pair.
type Report struct {
	TrainExamples int
	TestExamples  int
	Correct       int
	Classes       []ClassMetrics
}

// Accuracy is overall held-out accuracy; 0 with an empty test split.
func (r Report) Accuracy() float64 {
	if r.TestExamples == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.TestExamples)
}

// String renders the report in a compact per-class table.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "train=%d test=%d accuracy=%.3f\n",
		r.TrainExamples, r.TestExamples, r.Accuracy())
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "  %-20s precision=%.2f recall=%.2f support=%d\n",
			c.Tag, c.Precision(), c.Recall(), c.Support)
	}
	return b.String()
}

// Evaluate scores the trained pair on held-out examples.
func Evaluate(v *intent.Vectorizer, clf *intent.LinearClassifier, test []Example) Report {
	byTag := make(map[string]*ClassMetrics)
	metric := func(tag string) *ClassMetrics {
		m, ok := byTag[tag]
		if !ok {
			m = &ClassMetrics{Tag: tag}
			byTag[tag] = m
		}
		return m
	}

	report := Report{}
	for _, ex := range test {
		pred := clf.Predict(v.Transform(ex.Text))
		metric(ex.Tag).Support++
		metric(pred.Tag).Predicted++
		if pred.Tag == ex.Tag {
			metric(ex.Tag).Correct++
			report.Correct++
		}
	}

	tags := make([]string, 0, len(byTag))
	for tag := range byTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		report.Classes = append(report.Classes, *byTag[tag])
	}
	return report
}
