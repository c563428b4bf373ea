package factory

import (
	"context"
	"fmt"

	"github.com/yiyanglaw/spam-email-backend/internal/adapters/modelstore"
	"github.com/yiyanglaw/spam-email-backend/internal/adapters/report"
	"github.com/yiyanglaw/spam-email-backend/internal/config"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"github.com/yiyanglaw/spam-email-backend/internal/corpus"
	"go.uber.org/zap"
)

// ModelFactory obtains the trained model: from disk when one was saved,
// otherwise by training on the corpus
type ModelFactory struct {
	cfg        *config.Config
	logger     *zap.Logger
	normalizer core.Normalizer
}

// NewModelFactory creates a new model factory
func NewModelFactory(cfg *config.Config, logger *zap.Logger, normalizer core.Normalizer) *ModelFactory {
	return &ModelFactory{
		cfg:        cfg,
		logger:     logger,
		normalizer: normalizer,
	}
}

// CreateCorpusLoader creates the loader of the configured corpus CSV
func (f *ModelFactory) CreateCorpusLoader() *corpus.Loader {
	c := f.cfg.GetCorpus()
	return corpus.NewLoader(corpus.Options{
		Path:        c.Path,
		TextColumn:  c.TextColumn,
		LabelColumn: c.LabelColumn,
		SpamLabel:   c.SpamLabel,
	}, f.logger)
}

// TrainingOptions assembles the training run configuration
func (f *ModelFactory) TrainingOptions() (core.TrainingOptions, error) {
	t := f.cfg.GetTraining()
	grid, err := f.cfg.GetGrid()
	if err != nil {
		return core.TrainingOptions{}, fmt.Errorf("invalid parameter grid: %w", err)
	}

	opts := core.DefaultTrainingOptions()
	opts.TestSize = t.TestSize
	opts.Seed = t.Seed
	opts.Folds = t.Folds
	opts.Scoring = t.Scoring
	opts.NormalizeCorpus = t.NormalizeCorpus
	opts.Grid = grid
	if t.Workers > 0 {
		opts.Workers = t.Workers
	}
	return opts, nil
}

// CreateTrainingService creates a training service over the configured corpus
func (f *ModelFactory) CreateTrainingService() (*core.TrainingService, error) {
	opts, err := f.TrainingOptions()
	if err != nil {
		return nil, err
	}
	return core.NewTrainingService(f.CreateCorpusLoader(), f.normalizer, f.logger, opts), nil
}

// CreateEvaluator creates an evaluator using the configured worker count
func (f *ModelFactory) CreateEvaluator() (*core.Evaluator, error) {
	opts, err := f.TrainingOptions()
	if err != nil {
		return nil, err
	}
	return core.NewEvaluator(f.normalizer, f.logger, opts.Workers), nil
}

// CreateModelStore returns the store at model.path, or nil when none is configured
func (f *ModelFactory) CreateModelStore() *modelstore.FileStore {
	path := f.cfg.GetModel().Path
	if path == "" {
		return nil
	}
	return modelstore.NewFileStore(path, f.logger)
}

// Train runs a training session and persists its model and report as configured
func (f *ModelFactory) Train(ctx context.Context) (*core.TrainingResult, error) {
	svc, err := f.CreateTrainingService()
	if err != nil {
		return nil, err
	}
	result, err := svc.Train(ctx)
	if err != nil {
		return nil, err
	}

	modelCfg := f.cfg.GetModel()
	if store := f.CreateModelStore(); store != nil && modelCfg.Save {
		if err := store.Save(ctx, result.Model); err != nil {
			return nil, err
		}
	}
	if modelCfg.ReportPath != "" {
		if err := report.FromResult(result).WriteFile(modelCfg.ReportPath); err != nil {
			return nil, err
		}
		f.logger.Info("Training report written", zap.String("path", modelCfg.ReportPath))
	}
	return result, nil
}

// LoadOrTrain loads a saved model when model.path points at one, and trains
// otherwise. The second result is the training run, nil for a loaded model.
func (f *ModelFactory) LoadOrTrain(ctx context.Context) (*core.TrainedModel, *core.TrainingResult, error) {
	if store := f.CreateModelStore(); store != nil && store.Exists() {
		model, err := store.Load(ctx)
		if err != nil {
			return nil, nil, err
		}
		return model, nil, nil
	}

	f.logger.Info("No saved model found, training from corpus",
		zap.String("corpus", f.cfg.GetCorpus().Path))
	result, err := f.Train(ctx)
	if err != nil {
		return nil, nil, err
	}
	return result.Model, result, nil
}
