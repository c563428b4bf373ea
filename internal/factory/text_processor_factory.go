package factory

import (
	"fmt"

	"github.com/yiyanglaw/spam-email-backend/internal/config"
	"github.com/yiyanglaw/spam-email-backend/internal/text"
	"github.com/yiyanglaw/spam-email-backend/internal/utils"
	"go.uber.org/zap"
)

// TextFactory creates the text cleaning components
type TextFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextFactory creates a new TextFactory
func NewTextFactory(cfg *config.Config, logger *zap.Logger) *TextFactory {
	return &TextFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates the input sanitizer
func (f *TextFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreateNormalizer loads the linguistic resources once. A failure here is fatal
// at startup.
func (f *TextFactory) CreateNormalizer() (*text.Normalizer, error) {
	n, err := text.NewNormalizer(f.cfg.GetNLP().StopwordsPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize text normalizer: %w", err)
	}
	return n, nil
}
