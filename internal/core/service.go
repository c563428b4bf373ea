package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ClassifierOptions tune the prediction path
type ClassifierOptions struct {
	CacheEnabled bool
	CacheTTL     time.Duration
	MaxTextSize  int
}

// ClassifierService is the core service for spam prediction. It holds one trained
// model and never mutates it, so it serves concurrent callers without locking.
type ClassifierService struct {
	model      *TrainedModel
	classifier Classifier
	normalizer Normalizer
	sanitizer  TextSanitizer
	cache      CacheRepository
	whitelist  SenderWhitelist
	observer   PredictionObserver
	logger     *zap.Logger
	opts       ClassifierOptions
}

// NewClassifierService creates a new classifier service
func NewClassifierService(
	model *TrainedModel,
	normalizer Normalizer,
	sanitizer TextSanitizer,
	cache CacheRepository,
	whitelist SenderWhitelist,
	observer PredictionObserver,
	logger *zap.Logger,
	opts ClassifierOptions,
) *ClassifierService {
	if cache == nil {
		opts.CacheEnabled = false
	}
	return &ClassifierService{
		model:      model,
		classifier: model.Pipeline,
		normalizer: normalizer,
		sanitizer:  sanitizer,
		cache:      cache,
		whitelist:  whitelist,
		observer:   observer,
		logger:     logger,
		opts:       opts,
	}
}

// Model returns the trained model behind the service
func (s *ClassifierService) Model() *TrainedModel {
	return s.model
}

// CacheKey derives the cache key of a cleaned text for a model
func CacheKey(modelID, cleaned string) string {
	h := sha256.New()
	h.Write([]byte(modelID))
	h.Write([]byte{0})
	h.Write([]byte(cleaned))
	return hex.EncodeToString(h.Sum(nil))
}

// Predict classifies a raw text
func (s *ClassifierService) Predict(ctx context.Context, raw string) (*Prediction, error) {
	start := time.Now()

	text := raw
	if s.sanitizer != nil {
		text = s.sanitizer.ProcessText(raw, s.opts.MaxTextSize)
	}
	cleaned := s.normalizer.Normalize(text)
	key := CacheKey(s.model.ID, cleaned)

	if s.opts.CacheEnabled {
		entry, err := s.cache.Get(ctx, key)
		if err == nil {
			s.logger.Debug("Cache hit for text", zap.String("key", key))
			pred := s.newPrediction(entry.Label, entry.SpamProbability, cleaned, true)
			s.observe(pred, start)
			return pred, nil
		}
		s.logger.Debug("Cache miss for text", zap.String("key", key), zap.Error(err))
	}

	decision, err := s.classifier.Decide(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to classify text: %w", err)
	}
	pred := s.newPrediction(decision.Label, decision.Probabilities[Spam], cleaned, false)

	if s.opts.CacheEnabled {
		now := time.Now()
		entry := &CacheEntry{
			Key:             key,
			Label:           pred.Label,
			SpamProbability: pred.SpamProbability,
			CreatedAt:       now,
			ExpiresAt:       now.Add(s.opts.CacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err))
			if s.observer != nil {
				s.observer.ObserveCacheError("set")
			}
		}
	}

	s.observe(pred, start)
	return pred, nil
}

// ClassifyEmail classifies the subject and body of an email. Mail from whitelisted
// sender domains is reported as ham without consulting the model.
func (s *ClassifierService) ClassifyEmail(ctx context.Context, email *Email) (*Prediction, error) {
	if s.whitelist != nil && s.whitelist.IsWhitelisted(email.From) {
		s.logger.Info("Skipping spam check for whitelisted domain",
			zap.String("sender", email.From),
			zap.String("action", "whitelist_bypass"))
		return &Prediction{
			Label:       Ham,
			Display:     HamDisplay,
			ModelID:     "whitelist",
			PredictedAt: time.Now(),
		}, nil
	}

	parts := make([]string, 0, 2)
	if email.Subject != "" {
		parts = append(parts, email.Subject)
	}
	if email.Body != "" {
		parts = append(parts, email.Body)
	}
	return s.Predict(ctx, strings.Join(parts, "\n"))
}

func (s *ClassifierService) newPrediction(label Label, spamProbability float64, cleaned string, cached bool) *Prediction {
	return &Prediction{
		Label:           label,
		Display:         DisplayLabel(label),
		SpamProbability: spamProbability,
		CleanedText:     cleaned,
		ModelID:         s.model.ID,
		Cached:          cached,
		PredictedAt:     time.Now(),
	}
}

func (s *ClassifierService) observe(pred *Prediction, start time.Time) {
	if s.observer != nil {
		s.observer.ObservePrediction(pred.IsSpam(), pred.Cached, time.Since(start))
	}
}
