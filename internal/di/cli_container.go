package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/yiyanglaw/spam-email-backend/internal/config"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"github.com/yiyanglaw/spam-email-backend/internal/utils"
	"github.com/yiyanglaw/spam-email-backend/internal/whitelist"
)

// CLIFlags contains the persistent command line flags
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool
}

// BuildCLIContainer creates the container of the one-shot commands. The model and
// the classifier are only built when a command asks for them, and the classifier
// runs without a cache or metrics.
func BuildCLIContainer(cfg *config.Config, logger *zap.Logger) (*dig.Container, error) {
	container := dig.New()

	// Register configuration and logger
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *zap.Logger { return logger }); err != nil {
		return nil, err
	}

	if err := provideClassifier(container); err != nil {
		return nil, err
	}

	// Register classifier service with no cache
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		result *ModelResult,
		normalizer core.Normalizer,
		processor *utils.TextProcessor,
		checker *whitelist.Checker,
	) (*core.ClassifierService, error) {
		server, err := cfg.GetServer()
		if err != nil {
			return nil, err
		}
		return core.NewClassifierService(
			result.Model,
			normalizer,
			processor,
			nil, // No cache for CLI
			checker,
			nil, // No metrics for CLI
			logger,
			core.ClassifierOptions{MaxTextSize: server.MaxTextSize},
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
