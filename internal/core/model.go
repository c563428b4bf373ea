package core

import (
	"time"

	"github.com/yiyanglaw/spam-email-backend/internal/ml"
)

// Label is the binary target of a message
type Label = ml.Label

const (
	// Ham is the negative class
	Ham Label = 0
	// Spam is the positive class
	Spam Label = 1
)

const (
	// SpamDisplay is returned for messages classified as spam
	SpamDisplay = "Spam"
	// HamDisplay is returned for messages classified as ham
	HamDisplay = "Ham (Not Spam)"
)

// DisplayLabel maps a predicted class to its human readable label
func DisplayLabel(label Label) string {
	if label == Spam {
		return SpamDisplay
	}
	return HamDisplay
}

// Message represents one labelled record of the training corpus
type Message struct {
	Text  string
	Label Label
}

// Email represents an email message received by one of the mail frontends
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
	Headers map[string][]string
}

// Prediction represents the result of classifying a single text
type Prediction struct {
	Label           Label
	Display         string
	SpamProbability float64
	CleanedText     string
	ModelID         string
	Cached          bool
	PredictedAt     time.Time
}

// IsSpam reports whether the prediction is the positive class
func (p *Prediction) IsSpam() bool {
	return p.Label == Spam
}

// EvaluationMetrics holds the held-out scores of a trained model
type EvaluationMetrics struct {
	Accuracy  float64            `json:"accuracy" yaml:"accuracy"`
	F1        float64            `json:"f1" yaml:"f1"`
	Precision float64            `json:"precision" yaml:"precision"`
	Recall    float64            `json:"recall" yaml:"recall"`
	Confusion ml.ConfusionMatrix `json:"confusion" yaml:"confusion"`
	Samples   int                `json:"samples" yaml:"samples"`
}

// TrainedModel is a fitted pipeline together with the metadata of the run that produced it.
// It is never mutated once constructed.
type TrainedModel struct {
	ID              string             `json:"id"`
	TrainedAt       time.Time          `json:"trained_at"`
	Params          ml.Params          `json:"params"`
	Scoring         string             `json:"scoring"`
	BestScore       float64            `json:"best_score"`
	TestMetrics     *EvaluationMetrics `json:"test_metrics,omitempty"`
	NormalizeCorpus bool               `json:"normalize_corpus"`
	Pipeline        *ml.Pipeline       `json:"pipeline"`
}

type CacheEntry struct {
	Key             string
	Label           Label
	SpamProbability float64
	CreatedAt       time.Time
	ExpiresAt       time.Time
}
