package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yiyanglaw/spam-email-backend/internal/ml"
	"go.uber.org/zap"
)

type lowerNormalizer struct {
	mu    sync.Mutex
	calls int
}

func (n *lowerNormalizer) Normalize(text string) string {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
	setErr  error
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*CacheEntry)}
}

func (c *mapCache) Get(_ context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return entry, nil
}

func (c *mapCache) Set(_ context.Context, entry *CacheEntry) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = entry
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mapCache) Cleanup(context.Context) error { return nil }

type domainWhitelist string

func (d domainWhitelist) IsWhitelisted(from string) bool {
	return strings.HasSuffix(from, "@"+string(d))
}

type countingObserver struct {
	mu          sync.Mutex
	spam, ham   int
	cached      int
	cacheErrors int
}

func (o *countingObserver) ObservePrediction(spam bool, cached bool, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if spam {
		o.spam++
	} else {
		o.ham++
	}
	if cached {
		o.cached++
	}
}

func (o *countingObserver) ObserveCacheError(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cacheErrors++
}

func toyMessages() []Message {
	ham := []string{
		"see you at lunch tomorrow",
		"meeting moved to monday morning",
		"can you call mom tonight",
		"thanks for the dinner yesterday",
		"running late for the meeting",
	}
	spam := []string{
		"win free cash prize now",
		"claim your free prize today",
		"free cash offer click now",
		"urgent prize claim reply now",
		"exclusive offer win cash today",
	}
	var messages []Message
	for _, suffix := range []string{"", " okay", " please", " thanks"} {
		for i := range ham {
			messages = append(messages,
				Message{Text: ham[i] + suffix, Label: Ham},
				Message{Text: spam[i] + suffix, Label: Spam})
		}
	}
	return messages
}

func toyModel(t *testing.T) *TrainedModel {
	t.Helper()
	messages := toyMessages()
	pipeline := ml.NewPipeline(ml.DefaultParams())
	require.NoError(t, pipeline.Fit(texts(messages), labels(messages)))
	return &TrainedModel{ID: "model-1", Params: pipeline.Params(), NormalizeCorpus: true, Pipeline: pipeline}
}

func TestDisplayLabel(t *testing.T) {
	assert.Equal(t, "Spam", DisplayLabel(Spam))
	assert.Equal(t, "Ham (Not Spam)", DisplayLabel(Ham))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("m", "free cash"), CacheKey("m", "free cash"))
	assert.NotEqual(t, CacheKey("m", "free cash"), CacheKey("n", "free cash"))
	assert.NotEqual(t, CacheKey("m", "free cash"), CacheKey("m", "free cas"))
	assert.Len(t, CacheKey("m", ""), 64)
}

func TestClassifierServicePredict(t *testing.T) {
	observer := &countingObserver{}
	svc := NewClassifierService(toyModel(t), &lowerNormalizer{}, nil, nil, nil, observer, zap.NewNop(), ClassifierOptions{})

	pred, err := svc.Predict(context.Background(), "FREE CASH PRIZE")
	require.NoError(t, err)
	assert.Equal(t, Spam, pred.Label)
	assert.Equal(t, "Spam", pred.Display)
	assert.Equal(t, "free cash prize", pred.CleanedText)
	assert.Equal(t, "model-1", pred.ModelID)
	assert.Greater(t, pred.SpamProbability, 0.5)
	assert.False(t, pred.Cached)

	pred, err = svc.Predict(context.Background(), "lunch meeting tomorrow")
	require.NoError(t, err)
	assert.Equal(t, "Ham (Not Spam)", pred.Display)

	pred, err = svc.Predict(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Ham (Not Spam)", pred.Display)

	assert.Equal(t, 1, observer.spam)
	assert.Equal(t, 2, observer.ham)
}

func TestClassifierServiceCache(t *testing.T) {
	cache := newMapCache()
	observer := &countingObserver{}
	svc := NewClassifierService(toyModel(t), &lowerNormalizer{}, nil, cache, nil, observer, zap.NewNop(),
		ClassifierOptions{CacheEnabled: true, CacheTTL: time.Hour})

	first, err := svc.Predict(context.Background(), "Free cash prize")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	require.Len(t, cache.entries, 1)

	second, err := svc.Predict(context.Background(), "free   CASH prize")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Label, second.Label)
	assert.Equal(t, first.Display, second.Display)
	assert.Equal(t, 1, observer.cached)
}

func TestClassifierServiceCacheFailureStillPredicts(t *testing.T) {
	cache := newMapCache()
	cache.setErr = errors.New("disk full")
	observer := &countingObserver{}
	svc := NewClassifierService(toyModel(t), &lowerNormalizer{}, nil, cache, nil, observer, zap.NewNop(),
		ClassifierOptions{CacheEnabled: true, CacheTTL: time.Hour})

	pred, err := svc.Predict(context.Background(), "free cash prize")
	require.NoError(t, err)
	assert.Equal(t, "Spam", pred.Display)
	assert.Equal(t, 1, observer.cacheErrors)
}

func TestClassifierServiceNotFitted(t *testing.T) {
	model := &TrainedModel{ID: "empty", Pipeline: ml.NewPipeline(ml.DefaultParams())}
	svc := NewClassifierService(model, &lowerNormalizer{}, nil, nil, nil, nil, zap.NewNop(), ClassifierOptions{})

	_, err := svc.Predict(context.Background(), "anything")
	assert.ErrorIs(t, err, ml.ErrNotFitted)
}

func TestClassifyEmail(t *testing.T) {
	normalizer := &lowerNormalizer{}
	svc := NewClassifierService(toyModel(t), normalizer, nil, nil, domainWhitelist("example.com"), nil, zap.NewNop(), ClassifierOptions{})

	pred, err := svc.ClassifyEmail(context.Background(), &Email{From: "boss@example.com", Subject: "free cash prize"})
	require.NoError(t, err)
	assert.Equal(t, Ham, pred.Label)
	assert.Equal(t, "whitelist", pred.ModelID)
	assert.Zero(t, normalizer.calls)

	pred, err = svc.ClassifyEmail(context.Background(), &Email{
		From:    "promo@spammer.test",
		Subject: "Claim your free prize",
		Body:    "win cash now",
	})
	require.NoError(t, err)
	assert.Equal(t, Spam, pred.Label)
	assert.Equal(t, "claim your free prize win cash now", pred.CleanedText)
}

func TestClassifierServiceConcurrent(t *testing.T) {
	svc := NewClassifierService(toyModel(t), &lowerNormalizer{}, nil, newMapCache(), nil, nil, zap.NewNop(),
		ClassifierOptions{CacheEnabled: true, CacheTTL: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := "free cash prize"
			want := "Spam"
			if i%2 == 0 {
				text, want = "see you at lunch", "Ham (Not Spam)"
			}
			pred, err := svc.Predict(context.Background(), text)
			assert.NoError(t, err)
			assert.Equal(t, want, pred.Display)
		}(i)
	}
	wg.Wait()
}
