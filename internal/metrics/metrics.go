package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
)

const namespace = "spam_backend"

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	predictions  *prometheus.CounterVec
	latency      prometheus.Histogram
	cacheErrors  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	modelInfo    *prometheus.GaugeVec
	modelScores  *prometheus.GaugeVec
}

// New creates the collectors on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Predictions served, by result and source.",
		}, []string{"result", "source"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent normalizing and classifying a text.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Prediction cache operations that failed.",
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route and status code.",
		}, []string{"route", "code"}),
		modelInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_info",
			Help:      "The model being served.",
		}, []string{"model_id", "params"}),
		modelScores: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_score",
			Help:      "Scores of the served model.",
		}, []string{"metric"}),
	}

	m.registry.MustRegister(
		m.predictions,
		m.latency,
		m.cacheErrors,
		m.httpRequests,
		m.modelInfo,
		m.modelScores,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePrediction records one served prediction
func (m *Metrics) ObservePrediction(spam bool, cached bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ham"
	if spam {
		result = "spam"
	}
	source := "model"
	if cached {
		source = "cache"
	}
	m.predictions.WithLabelValues(result, source).Inc()
	m.latency.Observe(elapsed.Seconds())
}

// ObserveCacheError records a failed cache operation
func (m *Metrics) ObserveCacheError(op string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(op).Inc()
}

// ObserveRequest records a completed HTTP request
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// SetModel publishes the identity and scores of the served model
func (m *Metrics) SetModel(model *core.TrainedModel) {
	if m == nil || model == nil {
		return
	}
	m.modelInfo.Reset()
	m.modelInfo.WithLabelValues(model.ID, model.Params.String()).Set(1)
	m.modelScores.WithLabelValues("cv_best").Set(model.BestScore)
	if model.TestMetrics != nil {
		m.modelScores.WithLabelValues("test_accuracy").Set(model.TestMetrics.Accuracy)
		m.modelScores.WithLabelValues("test_f1").Set(model.TestMetrics.F1)
	}
}
