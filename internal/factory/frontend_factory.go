package factory

import (
	"github.com/yiyanglaw/spam-email-backend/internal/adapters/filter"
	"github.com/yiyanglaw/spam-email-backend/internal/adapters/httpapi"
	"github.com/yiyanglaw/spam-email-backend/internal/config"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"github.com/yiyanglaw/spam-email-backend/internal/metrics"
	"github.com/yiyanglaw/spam-email-backend/internal/ports"
	"go.uber.org/zap"
)

// FrontendFactory creates the entry points that feed the classifier
type FrontendFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ClassifierService
	metrics *metrics.Metrics
}

// NewFrontendFactory creates a new frontend factory
func NewFrontendFactory(cfg *config.Config, logger *zap.Logger, service *core.ClassifierService, m *metrics.Metrics) *FrontendFactory {
	return &FrontendFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
		metrics: m,
	}
}

// CreateHTTPServer creates the HTTP prediction server
func (f *FrontendFactory) CreateHTTPServer() (*httpapi.Server, error) {
	server, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}
	m := f.cfg.GetMetrics()
	return httpapi.NewServer(f.service, f.metrics, f.logger, httpapi.Options{
		ListenAddress:   server.ListenAddress,
		ReadTimeout:     server.ReadTimeout,
		WriteTimeout:    server.WriteTimeout,
		IdleTimeout:     server.IdleTimeout,
		ShutdownTimeout: server.ShutdownTimeout,
		MaxBodySize:     server.MaxBodySize,
		MetricsEnabled:  m.Enabled,
		MetricsPath:     m.Path,
	}), nil
}

// CreatePostfixFilter creates the SMTP content filter
func (f *FrontendFactory) CreatePostfixFilter() *filter.PostfixFilter {
	s := f.cfg.GetSMTP()
	return filter.NewPostfixFilter(f.service, f.logger, filter.PostfixOptions{
		ListenAddress:  s.ListenAddress,
		ForwardAddress: s.ForwardAddress,
		BlockSpam:      s.BlockSpam,
		SubjectPrefix:  s.SubjectPrefix,
		SpamHeader:     s.Headers.Spam,
		ScoreHeader:    s.Headers.Score,
		ReasonHeader:   s.Headers.Reason,
		MaxBodySize:    s.MaxBodySize,
	}, nil)
}

// CreateFrontends creates the HTTP server and, when enabled, the SMTP filter
func (f *FrontendFactory) CreateFrontends() ([]ports.Frontend, error) {
	httpServer, err := f.CreateHTTPServer()
	if err != nil {
		return nil, err
	}
	frontends := []ports.Frontend{httpServer}
	if f.cfg.GetSMTP().Enabled {
		frontends = append(frontends, f.CreatePostfixFilter())
	}
	return frontends, nil
}
