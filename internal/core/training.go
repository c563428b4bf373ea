package core

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/yiyanglaw/spam-email-backend/internal/ml"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TrainingOptions control how a model is built from the corpus
type TrainingOptions struct {
	TestSize        float64
	Seed            uint64
	Folds           int
	Scoring         string
	Workers         int
	NormalizeCorpus bool
	Grid            ml.Grid
}

// DefaultTrainingOptions reproduces the reference training run
func DefaultTrainingOptions() TrainingOptions {
	return TrainingOptions{
		TestSize:        0.25,
		Seed:            42,
		Folds:           5,
		Scoring:         "f1",
		Workers:         runtime.NumCPU(),
		NormalizeCorpus: true,
		Grid:            ml.DefaultGrid(),
	}
}

// TrainingResult is the outcome of a training run
type TrainingResult struct {
	Model      *TrainedModel
	Search     *ml.SearchResult
	TrainCount int
	TestCount  int
	Duration   time.Duration
}

// TrainingService fits a model on the labelled corpus
type TrainingService struct {
	source     CorpusSource
	normalizer Normalizer
	evaluator  *Evaluator
	logger     *zap.Logger
	opts       TrainingOptions
}

// NewTrainingService creates a new training service
func NewTrainingService(source CorpusSource, normalizer Normalizer, logger *zap.Logger, opts TrainingOptions) *TrainingService {
	return &TrainingService{
		source:     source,
		normalizer: normalizer,
		evaluator:  NewEvaluator(normalizer, logger, opts.Workers),
		logger:     logger,
		opts:       opts,
	}
}

// Train loads the corpus, holds out a test split, grid searches the pipeline
// hyperparameters on the training split and evaluates the refit winner on the
// held-out split
func (s *TrainingService) Train(ctx context.Context) (*TrainingResult, error) {
	start := time.Now()

	messages, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	trainIdx, testIdx, err := ml.TrainTestSplit(len(messages), s.opts.TestSize, ml.NewRand(s.opts.Seed))
	if err != nil {
		return nil, fmt.Errorf("failed to split corpus: %w", err)
	}
	train := pick(messages, trainIdx)
	test := pick(messages, testIdx)

	s.logger.Info("Corpus split",
		zap.Int("train", len(train)),
		zap.Int("test", len(test)),
		zap.Uint64("seed", s.opts.Seed))

	docs := texts(train)
	if s.opts.NormalizeCorpus {
		docs, err = NormalizeAll(ctx, s.normalizer, docs, s.opts.Workers)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("Starting grid search",
		zap.Int("candidates", len(s.opts.Grid.Candidates())),
		zap.Int("folds", s.opts.Folds),
		zap.String("scoring", s.opts.Scoring),
		zap.Int("workers", s.opts.Workers))

	search, err := ml.GridSearch(ctx, docs, labels(train), s.opts.Grid, ml.SearchOptions{
		Folds:   s.opts.Folds,
		Scoring: s.opts.Scoring,
		Workers: s.opts.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("grid search failed: %w", err)
	}

	for _, c := range search.Candidates {
		if c.Failed() {
			s.logger.Warn("Candidate failed to fit",
				zap.Stringer("params", c.Params),
				zap.String("error", c.Error))
		}
	}
	s.logger.Info("Grid search complete",
		zap.Stringer("best_params", search.BestParams()),
		zap.Float64("best_score", search.BestScore()))

	model := &TrainedModel{
		ID:              uuid.New().String(),
		TrainedAt:       time.Now().UTC(),
		Params:          search.BestParams(),
		Scoring:         s.opts.Scoring,
		BestScore:       search.BestScore(),
		NormalizeCorpus: s.opts.NormalizeCorpus,
		Pipeline:        search.Best,
	}

	metrics, err := s.evaluator.Evaluate(ctx, model, test)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate model: %w", err)
	}
	model.TestMetrics = metrics

	return &TrainingResult{
		Model:      model,
		Search:     search,
		TrainCount: len(train),
		TestCount:  len(test),
		Duration:   time.Since(start),
	}, nil
}

// Evaluator scores a trained model against labelled messages
type Evaluator struct {
	normalizer Normalizer
	logger     *zap.Logger
	workers    int
}

// NewEvaluator creates a new evaluator
func NewEvaluator(normalizer Normalizer, logger *zap.Logger, workers int) *Evaluator {
	return &Evaluator{
		normalizer: normalizer,
		logger:     logger,
		workers:    workers,
	}
}

// Evaluate predicts every message and compares against its label. Messages are
// normalized first when the model was trained on normalized text.
func (e *Evaluator) Evaluate(ctx context.Context, model *TrainedModel, messages []Message) (*EvaluationMetrics, error) {
	docs := texts(messages)
	if model.NormalizeCorpus {
		var err error
		docs, err = NormalizeAll(ctx, e.normalizer, docs, e.workers)
		if err != nil {
			return nil, err
		}
	}

	predicted, err := model.Pipeline.PredictAll(docs)
	if err != nil {
		return nil, err
	}
	confusion, err := ml.NewConfusionMatrix(labels(messages), predicted)
	if err != nil {
		return nil, err
	}

	metrics := &EvaluationMetrics{
		Accuracy:  confusion.Accuracy(),
		F1:        confusion.F1(),
		Precision: confusion.Precision(),
		Recall:    confusion.Recall(),
		Confusion: confusion,
		Samples:   len(messages),
	}

	e.logger.Info("Model evaluated",
		zap.String("model_id", model.ID),
		zap.Int("samples", metrics.Samples),
		zap.Float64("accuracy", metrics.Accuracy),
		zap.Float64("f1", metrics.F1),
		zap.Float64("precision", metrics.Precision),
		zap.Float64("recall", metrics.Recall))

	return metrics, nil
}

// NormalizeAll normalizes texts on a bounded pool of goroutines, keeping order
func NormalizeAll(ctx context.Context, normalizer Normalizer, in []string, workers int) ([]string, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	out := make([]string, len(in))
	chunk := (len(in) + workers - 1) / workers
	if chunk == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(in); lo += chunk {
		hi := min(lo+chunk, len(in))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				out[i] = normalizer.Normalize(in[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to normalize corpus: %w", err)
	}
	return out, nil
}

func pick(messages []Message, idx []int) []Message {
	out := make([]Message, len(idx))
	for k, i := range idx {
		out[k] = messages[i]
	}
	return out
}

func texts(messages []Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Text
	}
	return out
}

func labels(messages []Message) []Label {
	out := make([]Label, len(messages))
	for i, m := range messages {
		out[i] = m.Label
	}
	return out
}
