package core

import (
	"context"
	"time"

	"github.com/yiyanglaw/spam-email-backend/internal/ml"
)

// Normalizer defines the text cleaning applied before a text reaches the model
type Normalizer interface {
	// Normalize maps raw text to the cleaned token string the model consumes
	Normalize(text string) string
}

// Classifier defines the interface of a fitted text classifier
type Classifier interface {
	// Decide returns the predicted class and the class probabilities of a document
	Decide(doc string) (ml.Decision, error)
}

// CorpusSource provides the labelled messages a model is trained on
type CorpusSource interface {
	Load(ctx context.Context) ([]Message, error)
}

// CacheRepository defines the interface for caching prediction results
type CacheRepository interface {
	// Get retrieves a cached entry by key
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// TextSanitizer makes untrusted input safe to process
type TextSanitizer interface {
	ProcessText(text string, maxSize int) string
}

// SenderWhitelist decides whether a sender bypasses classification
type SenderWhitelist interface {
	IsWhitelisted(from string) bool
}

// PredictionObserver receives the outcome of every prediction
type PredictionObserver interface {
	ObservePrediction(spam bool, cached bool, elapsed time.Duration)
	ObserveCacheError(op string)
}
