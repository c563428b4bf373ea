package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	serviceName    = "spam-email-backend"
	textField      = "text"
	maxMemoryParts = 10 << 20
)

// healthResponse is the JSON body of the probe endpoints
type healthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxBodySize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodySize)
	}

	if err := parseForm(r); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.logger.Debug("Malformed form body", zap.Error(err))
		writeText(w, http.StatusBadRequest, "malformed form body")
		return
	}

	values, ok := r.PostForm[textField]
	if !ok || len(values) == 0 {
		writeText(w, http.StatusBadRequest, "missing form field: "+textField)
		return
	}

	pred, err := s.predictor.Predict(r.Context(), values[0])
	if err != nil {
		s.logger.Error("Prediction failed", zap.Error(err))
		writeText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	s.logger.Debug("Prediction served",
		zap.String("result", pred.Display),
		zap.Float64("spam_probability", pred.SpamProbability),
		zap.Bool("cached", pred.Cached))
	writeText(w, http.StatusOK, pred.Display)
}

// parseForm reads an urlencoded or multipart body into r.PostForm
func parseForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxMemoryParts)
	}
	return r.ParseForm()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ready",
		Service:   serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    map[string]string{},
	}

	model := s.predictor.Model()
	if model == nil || !model.Pipeline.Fitted() {
		resp.Status = "not_ready"
		resp.Checks["model"] = "not loaded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Checks["model"] = "ok"
	resp.Checks["model_id"] = model.ID
	writeJSON(w, http.StatusOK, resp)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
