package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yiyanglaw/spam-email-backend/internal/config"
	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"github.com/yiyanglaw/spam-email-backend/internal/metrics"
	"github.com/yiyanglaw/spam-email-backend/internal/ml"
	"go.uber.org/zap"
)

type lowerNormalizer struct{}

func (lowerNormalizer) Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func testService(t *testing.T) *core.ClassifierService {
	t.Helper()
	docs := []string{
		"free money click now",
		"win free prize money now",
		"click here to claim your free cash",
		"urgent winner claim cash prize",
		"see you at lunch tomorrow",
		"the meeting moved to friday",
		"please review the attached report",
		"thanks for dinner last night",
		"can you call me after work",
		"lunch on friday sounds good",
	}
	labels := []ml.Label{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}
	pipeline := ml.NewPipeline(ml.DefaultParams())
	require.NoError(t, pipeline.Fit(docs, labels))

	model := &core.TrainedModel{
		ID:       "test-model",
		Params:   pipeline.Params(),
		Pipeline: pipeline,
	}
	return core.NewClassifierService(model, lowerNormalizer{}, nil, nil, nil, nil, zap.NewNop(), core.ClassifierOptions{})
}

func newTestServer(t *testing.T, predictor Predictor, m *metrics.Metrics) *Server {
	t.Helper()
	return NewServer(predictor, m, zap.NewNop(), Options{
		ListenAddress:   "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    5 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxBodySize:     1 << 16,
		MetricsEnabled:  true,
	})
}

func postForm(h http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, PredictPath, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPredictSpam(t *testing.T) {
	h := newTestServer(t, testService(t), nil).Handler()

	rec := postForm(h, url.Values{"text": {"FREE MONEY CLICK NOW"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, core.SpamDisplay, rec.Body.String())
}

func TestPredictHam(t *testing.T) {
	h := newTestServer(t, testService(t), nil).Handler()

	rec := postForm(h, url.Values{"text": {"see you at the meeting on friday"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.HamDisplay, rec.Body.String())
}

func TestPredictEmptyTextIsMajorityClass(t *testing.T) {
	h := newTestServer(t, testService(t), nil).Handler()

	for i := 0; i < 3; i++ {
		rec := postForm(h, url.Values{"text": {""}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, core.HamDisplay, rec.Body.String())
	}
}

func TestPredictMultipart(t *testing.T) {
	h := newTestServer(t, testService(t), nil).Handler()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("text", "win free prize money now"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, PredictPath, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.SpamDisplay, rec.Body.String())
}

func TestPredictMissingField(t *testing.T) {
	h := newTestServer(t, testService(t), nil).Handler()

	rec := postForm(h, url.Values{"message": {"hello"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "text")

	req := httptest.NewRequest(http.MethodPost, PredictPath, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictQueryStringIgnored(t *testing.T) {
	h := newTestServer(t, testService(t), nil).Handler()

	req := httptest.NewRequest(http.MethodPost, PredictPath+"?text=free", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, testService(t), nil).Handler()

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, PredictPath, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
	}
}

func TestPredictLargeBodyWithDefaults(t *testing.T) {
	server, err := config.NewFromViper(config.NewEmptyViper()).GetServer()
	require.NoError(t, err)
	srv := NewServer(testService(t), nil, zap.NewNop(), Options{MaxBodySize: server.MaxBodySize})

	text := strings.Repeat("lunch friday ", 90000)
	require.Greater(t, len(text), 1<<20)

	rec := postForm(srv.Handler(), url.Values{"text": {text}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, []string{core.SpamDisplay, core.HamDisplay}, rec.Body.String())
}

func TestPredictBodyTooLarge(t *testing.T) {
	srv := NewServer(testService(t), nil, zap.NewNop(), Options{MaxBodySize: 64})
	h := srv.Handler()

	rec := postForm(h, url.Values{"text": {strings.Repeat("spam ", 100)}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

type panickingPredictor struct{}

func (panickingPredictor) Predict(context.Context, string) (*core.Prediction, error) {
	panic("boom")
}

func (panickingPredictor) Model() *core.TrainedModel {
	return nil
}

func TestPredictPanicRecovered(t *testing.T) {
	m := metrics.New()
	h := newTestServer(t, panickingPredictor{}, m).Handler()

	rec := postForm(h, url.Values{"text": {"hello"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), `spam_backend_http_requests_total{code="500",route="predict"} 1`)
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, testService(t), nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, serviceName, body.Service)
}

func TestReadyz(t *testing.T) {
	h := newTestServer(t, testService(t), nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "ok", body.Checks["model"])
	assert.Equal(t, "test-model", body.Checks["model_id"])
}

func TestReadyzWithoutModel(t *testing.T) {
	h := newTestServer(t, panickingPredictor{}, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	h := newTestServer(t, testService(t), m).Handler()

	postForm(h, url.Values{"text": {"FREE MONEY CLICK NOW"}})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spam_backend_http_requests_total{code="200",route="predict"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	srv := NewServer(testService(t), metrics.New(), zap.NewNop(), Options{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartStop(t *testing.T) {
	srv := newTestServer(t, testService(t), nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })

	resp, err := http.PostForm("http://"+srv.Addr()+PredictPath, url.Values{"text": {"FREE MONEY CLICK NOW"}})
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, []string{core.SpamDisplay, core.HamDisplay}, string(body))

	require.NoError(t, srv.Stop())
	assert.NoError(t, srv.Stop())
}

func TestStartBadAddress(t *testing.T) {
	srv := NewServer(testService(t), nil, zap.NewNop(), Options{ListenAddress: "256.0.0.1:99999"})
	assert.Error(t, srv.Start())
}
