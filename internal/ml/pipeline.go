package ml

import (
	"fmt"
)

// Pipeline chains a TF-IDF vectorizer and a multinomial naive Bayes classifier.
// A fitted pipeline is only read, so it can serve concurrent callers.
type Pipeline struct {
	Vectorizer *TfidfVectorizer `json:"vectorizer"`
	Classifier *MultinomialNB   `json:"classifier"`
}

// NewPipeline creates an unfitted pipeline for the given hyperparameters
func NewPipeline(p Params) *Pipeline {
	return &Pipeline{
		Vectorizer: NewTfidfVectorizer(p.NgramRange, p.MaxDF),
		Classifier: NewMultinomialNB(p.Alpha),
	}
}

// Params returns the hyperparameters the pipeline was built with
func (p *Pipeline) Params() Params {
	return Params{
		NgramRange: p.Vectorizer.NgramRange,
		MaxDF:      p.Vectorizer.MaxDF,
		Alpha:      p.Classifier.Alpha,
	}
}

// Fitted reports whether both stages are fitted
func (p *Pipeline) Fitted() bool {
	return p != nil && p.Vectorizer.Fitted() && p.Classifier.Fitted()
}

// Fit learns the vocabulary from docs and trains the classifier on their TF-IDF rows
func (p *Pipeline) Fit(docs []string, labels []Label) error {
	if len(docs) != len(labels) {
		return fmt.Errorf("%w: %d documents, %d labels", ErrLengthMismatch, len(docs), len(labels))
	}
	rows, err := p.Vectorizer.FitTransform(docs)
	if err != nil {
		return fmt.Errorf("failed to fit vectorizer: %w", err)
	}
	if err := p.Classifier.Fit(rows, labels, p.Vectorizer.NumFeatures()); err != nil {
		return fmt.Errorf("failed to fit classifier: %w", err)
	}
	return nil
}

// Decide classifies a document
func (p *Pipeline) Decide(doc string) (Decision, error) {
	if !p.Fitted() {
		return Decision{}, ErrNotFitted
	}
	row, err := p.Vectorizer.Transform(doc)
	if err != nil {
		return Decision{}, err
	}
	return p.Classifier.Decide(row)
}

// Predict returns the class of a document
func (p *Pipeline) Predict(doc string) (Label, error) {
	d, err := p.Decide(doc)
	return d.Label, err
}

// PredictAll returns the class of every document
func (p *Pipeline) PredictAll(docs []string) ([]Label, error) {
	labels := make([]Label, len(docs))
	for i, doc := range docs {
		label, err := p.Predict(doc)
		if err != nil {
			return nil, err
		}
		labels[i] = label
	}
	return labels, nil
}
