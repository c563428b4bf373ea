package modelstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"go.uber.org/zap"
)

// formatVersion is bumped whenever the persisted layout changes
const formatVersion = 1

// ErrNotFound is returned when no model has been saved at the path
var ErrNotFound = errors.New("model file not found")

type envelope struct {
	Format int                `json:"format"`
	Model  *core.TrainedModel `json:"model"`
}

// FileStore persists a trained model as a JSON document
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a store backed by the file at path
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Path returns the backing file
func (s *FileStore) Path() string {
	return s.path
}

// Exists reports whether a model file is present
func (s *FileStore) Exists() bool {
	info, err := os.Stat(s.path)
	return err == nil && !info.IsDir()
}

// Save writes the model atomically: to a temporary file first, then renamed into place
func (s *FileStore) Save(ctx context.Context, model *core.TrainedModel) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(envelope{Format: formatVersion, Model: model})
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to move model into place: %w", err)
	}

	s.logger.Info("Model saved",
		zap.String("path", s.path),
		zap.String("model_id", model.ID),
		zap.Int("bytes", len(data)))
	return nil
}

// Load reads a model saved by Save
func (s *FileStore) Load(ctx context.Context) (*core.TrainedModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", s.path, err)
	}
	if env.Format != formatVersion {
		return nil, fmt.Errorf("unsupported model format %d in %s (want %d)", env.Format, s.path, formatVersion)
	}
	if env.Model == nil || !env.Model.Pipeline.Fitted() {
		return nil, fmt.Errorf("model file %s does not contain a fitted pipeline", s.path)
	}

	s.logger.Info("Model loaded",
		zap.String("path", s.path),
		zap.String("model_id", env.Model.ID),
		zap.Stringer("params", env.Model.Params))
	return env.Model, nil
}
