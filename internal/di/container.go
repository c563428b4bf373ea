package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/yiyanglaw/spam-email-backend/internal/adapters/cache"
	"github.com/yiyanglaw/spam-email-backend/internal/config"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"github.com/yiyanglaw/spam-email-backend/internal/factory"
	"github.com/yiyanglaw/spam-email-backend/internal/logging"
	"github.com/yiyanglaw/spam-email-backend/internal/metrics"
	"github.com/yiyanglaw/spam-email-backend/internal/ports"
	"github.com/yiyanglaw/spam-email-backend/internal/text"
	"github.com/yiyanglaw/spam-email-backend/internal/utils"
	"github.com/yiyanglaw/spam-email-backend/internal/whitelist"
)

// ModelResult is the model being served and, when it was trained at startup,
// the training run that produced it
type ModelResult struct {
	Model    *core.TrainedModel
	Training *core.TrainingResult
}

// BuildContainer creates and configures the dependency injection container of
// the serve command
func BuildContainer(cfg *config.Config) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register metrics
	if err := container.Provide(metrics.New); err != nil {
		return nil, err
	}

	if err := provideClassifier(container); err != nil {
		return nil, err
	}

	// Register cache repository
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) (cache.Repository, error) {
		return f.CreateCacheRepository(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register classifier service
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		result *ModelResult,
		normalizer core.Normalizer,
		processor *utils.TextProcessor,
		repo cache.Repository,
		checker *whitelist.Checker,
		m *metrics.Metrics,
	) (*core.ClassifierService, error) {
		opts, err := classifierOptions(cfg)
		if err != nil {
			return nil, err
		}
		m.SetModel(result.Model)

		var cacheRepo core.CacheRepository
		if repo != nil {
			cacheRepo = repo
		}
		return core.NewClassifierService(result.Model, normalizer, processor, cacheRepo, checker, m, logger, opts), nil
	}); err != nil {
		return nil, err
	}

	// Register frontends
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FrontendFactory) ([]ports.Frontend, error) {
		return f.CreateFrontends()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideClassifier registers the text pipeline, the model and the sender
// whitelist, shared by the server and CLI containers
func provideClassifier(container *dig.Container) error {
	// Register factories
	if err := container.Provide(factory.NewTextFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewModelFactory); err != nil {
		return err
	}

	// Register text processing
	if err := container.Provide(func(f *factory.TextFactory) (*text.Normalizer, error) {
		return f.CreateNormalizer()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(n *text.Normalizer) core.Normalizer { return n }); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TextFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register the trained model
	if err := container.Provide(func(f *factory.ModelFactory) (*ModelResult, error) {
		model, training, err := f.LoadOrTrain(context.Background())
		if err != nil {
			return nil, err
		}
		return &ModelResult{Model: model, Training: training}, nil
	}); err != nil {
		return err
	}

	// Register whitelisted domains
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		return whitelist.NewChecker(cfg.GetSMTP().WhitelistedDomains, logger)
	}); err != nil {
		return err
	}

	return nil
}

func classifierOptions(cfg *config.Config) (core.ClassifierOptions, error) {
	cacheCfg, err := cfg.GetCache()
	if err != nil {
		return core.ClassifierOptions{}, err
	}
	server, err := cfg.GetServer()
	if err != nil {
		return core.ClassifierOptions{}, err
	}
	return core.ClassifierOptions{
		CacheEnabled: cacheCfg.Enabled,
		CacheTTL:     cacheCfg.TTL,
		MaxTextSize:  server.MaxTextSize,
	}, nil
}
