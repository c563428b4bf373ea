package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"github.com/yiyanglaw/spam-email-backend/internal/metrics"
	"go.uber.org/zap"
)

// PredictPath is the route of the prediction endpoint
const PredictPath = "/email/predict_spam"

// Predictor classifies a raw text
type Predictor interface {
	Predict(ctx context.Context, text string) (*core.Prediction, error)
	Model() *core.TrainedModel
}

// Options configure the HTTP server
type Options struct {
	ListenAddress   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
	MetricsEnabled  bool
	MetricsPath     string
}

// Server exposes the classifier over HTTP
type Server struct {
	predictor Predictor
	metrics   *metrics.Metrics
	logger    *zap.Logger
	opts      Options
	started   time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new HTTP server. m may be nil.
func NewServer(predictor Predictor, m *metrics.Metrics, logger *zap.Logger, opts Options) *Server {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	return &Server{
		predictor: predictor,
		metrics:   m,
		logger:    logger,
		opts:      opts,
		started:   time.Now(),
	}
}

// Name identifies the frontend
func (s *Server) Name() string {
	return "http"
}

// Handler builds the routing table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handle(mux, "POST "+PredictPath, "predict", s.handlePredict)
	s.handle(mux, "GET /healthz", "healthz", s.handleHealthz)
	s.handle(mux, "GET /readyz", "readyz", s.handleReadyz)
	if s.opts.MetricsEnabled && s.metrics != nil {
		mux.Handle("GET "+s.opts.MetricsPath, s.metrics.Handler())
	}
	return s.recoverer(mux)
}

// Start binds the listen address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.ListenAddress, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("HTTP server starting",
		zap.String("address", ln.Addr().String()),
		zap.String("route", PredictPath))

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests, bounded by the shutdown timeout
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx := context.Background()
	if s.opts.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ShutdownTimeout)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
