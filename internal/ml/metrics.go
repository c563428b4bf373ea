package ml

import "fmt"

// Positive is the class scored by precision, recall and F1
const Positive Label = 1

// ConfusionMatrix counts binary outcomes for the positive class
type ConfusionMatrix struct {
	TruePositives  int `json:"true_positives" yaml:"true_positives"`
	FalsePositives int `json:"false_positives" yaml:"false_positives"`
	TrueNegatives  int `json:"true_negatives" yaml:"true_negatives"`
	FalseNegatives int `json:"false_negatives" yaml:"false_negatives"`
}

// NewConfusionMatrix tallies predictions against the true labels
func NewConfusionMatrix(truth, predicted []Label) (ConfusionMatrix, error) {
	var m ConfusionMatrix
	if len(truth) != len(predicted) {
		return m, fmt.Errorf("%w: %d labels, %d predictions", ErrLengthMismatch, len(truth), len(predicted))
	}
	for i := range truth {
		switch {
		case truth[i] == Positive && predicted[i] == Positive:
			m.TruePositives++
		case truth[i] != Positive && predicted[i] == Positive:
			m.FalsePositives++
		case truth[i] == Positive:
			m.FalseNegatives++
		default:
			m.TrueNegatives++
		}
	}
	return m, nil
}

// Total is the number of samples
func (m ConfusionMatrix) Total() int {
	return m.TruePositives + m.FalsePositives + m.TrueNegatives + m.FalseNegatives
}

// Accuracy is the fraction of correct predictions
func (m ConfusionMatrix) Accuracy() float64 {
	return ratio(m.TruePositives+m.TrueNegatives, m.Total())
}

// Precision is TP / (TP + FP), 0 when nothing was predicted positive
func (m ConfusionMatrix) Precision() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
}

// Recall is TP / (TP + FN), 0 when there are no positives
func (m ConfusionMatrix) Recall() float64 {
	return ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
}

// F1 is the harmonic mean of precision and recall, 0 when undefined
func (m ConfusionMatrix) F1() float64 {
	return ratio(2*m.TruePositives, 2*m.TruePositives+m.FalsePositives+m.FalseNegatives)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Scorer computes a quality score where higher is better
type Scorer func(m ConfusionMatrix) float64

var scorers = map[string]Scorer{
	"accuracy":  ConfusionMatrix.Accuracy,
	"f1":        ConfusionMatrix.F1,
	"precision": ConfusionMatrix.Precision,
	"recall":    ConfusionMatrix.Recall,
}

// LookupScorer returns the scorer registered under name
func LookupScorer(name string) (Scorer, error) {
	s, ok := scorers[name]
	if !ok {
		return nil, fmt.Errorf("unknown scoring %q (valid: accuracy, f1, precision, recall)", name)
	}
	return s, nil
}

// Accuracy is the fraction of predictions equal to the truth
func Accuracy(truth, predicted []Label) (float64, error) {
	m, err := NewConfusionMatrix(truth, predicted)
	if err != nil {
		return 0, err
	}
	return m.Accuracy(), nil
}

// F1 is the F1 score of the positive class
func F1(truth, predicted []Label) (float64, error) {
	m, err := NewConfusionMatrix(truth, predicted)
	if err != nil {
		return 0, err
	}
	return m.F1(), nil
}
