package ml

import (
	"fmt"
	"math"
	"sort"
)

// MultinomialNB is a multinomial naive Bayes classifier with additive smoothing
type MultinomialNB struct {
	Alpha          float64     `json:"alpha"`
	Classes        []Label     `json:"classes"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
}

// Decision is the outcome of classifying one row
type Decision struct {
	Label         Label
	Probabilities map[Label]float64
}

// NewMultinomialNB creates an unfitted classifier
func NewMultinomialNB(alpha float64) *MultinomialNB {
	return &MultinomialNB{Alpha: alpha}
}

// Fitted reports whether Fit has completed
func (nb *MultinomialNB) Fitted() bool {
	return nb != nil && len(nb.Classes) > 0 && len(nb.FeatureLogProb) == len(nb.Classes)
}

// Fit estimates the class priors and per-class feature log probabilities.
// Classes are kept in ascending order.
func (nb *MultinomialNB) Fit(rows []Vector, labels []Label, numFeatures int) error {
	if len(rows) != len(labels) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrLengthMismatch, len(rows), len(labels))
	}
	if len(rows) == 0 {
		return fmt.Errorf("cannot fit naive Bayes on zero samples")
	}
	if nb.Alpha <= 0 {
		return fmt.Errorf("alpha must be positive, got %g", nb.Alpha)
	}

	classIndex := make(map[Label]int)
	for _, l := range labels {
		classIndex[l] = 0
	}
	classes := make([]Label, 0, len(classIndex))
	for l := range classIndex {
		classes = append(classes, l)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	for i, l := range classes {
		classIndex[l] = i
	}

	classCount := make([]float64, len(classes))
	featureCount := make([][]float64, len(classes))
	for c := range featureCount {
		featureCount[c] = make([]float64, numFeatures)
	}
	for i, row := range rows {
		c := classIndex[labels[i]]
		classCount[c]++
		for k, j := range row.Indices {
			if j < 0 || j >= numFeatures {
				return fmt.Errorf("feature index %d out of range [0, %d)", j, numFeatures)
			}
			featureCount[c][j] += row.Values[k]
		}
	}

	n := float64(len(rows))
	logPrior := make([]float64, len(classes))
	logProb := make([][]float64, len(classes))
	for c := range classes {
		logPrior[c] = math.Log(classCount[c]) - math.Log(n)

		var total float64
		for _, fc := range featureCount[c] {
			total += fc + nb.Alpha
		}
		logTotal := math.Log(total)
		logProb[c] = make([]float64, numFeatures)
		for j, fc := range featureCount[c] {
			logProb[c][j] = math.Log(fc+nb.Alpha) - logTotal
		}
	}

	nb.Classes = classes
	nb.ClassLogPrior = logPrior
	nb.FeatureLogProb = logProb
	return nil
}

// jointLogLikelihood returns log P(c) + sum_j x_j log P(j|c) for every class
func (nb *MultinomialNB) jointLogLikelihood(row Vector) []float64 {
	jll := make([]float64, len(nb.Classes))
	for c := range nb.Classes {
		var sum float64
		for k, j := range row.Indices {
			if j < len(nb.FeatureLogProb[c]) {
				sum += row.Values[k] * nb.FeatureLogProb[c][j]
			}
		}
		jll[c] = sum + nb.ClassLogPrior[c]
	}
	return jll
}

// Predict returns the class with the highest joint log likelihood; the lowest class wins ties
func (nb *MultinomialNB) Predict(row Vector) (Label, error) {
	d, err := nb.Decide(row)
	return d.Label, err
}

// Decide returns the predicted class and the posterior probability of every class
func (nb *MultinomialNB) Decide(row Vector) (Decision, error) {
	if !nb.Fitted() {
		return Decision{}, ErrNotFitted
	}

	jll := nb.jointLogLikelihood(row)
	best := 0
	for c := 1; c < len(jll); c++ {
		if jll[c] > jll[best] {
			best = c
		}
	}

	// log-sum-exp around the maximum
	var sum float64
	for _, v := range jll {
		sum += math.Exp(v - jll[best])
	}
	logNorm := jll[best] + math.Log(sum)

	probs := make(map[Label]float64, len(jll))
	for c, v := range jll {
		probs[nb.Classes[c]] = math.Exp(v - logNorm)
	}

	return Decision{Label: nb.Classes[best], Probabilities: probs}, nil
}
