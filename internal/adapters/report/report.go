package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/yiyanglaw/spam-email-backend/internal/core"
	"github.com/yiyanglaw/spam-email-backend/internal/ml"
	"gopkg.in/yaml.v3"
)

// Candidate is one grid point as it appears in the report
type Candidate struct {
	Rank        int       `yaml:"rank"`
	Alpha       float64   `yaml:"alpha"`
	MaxDF       float64   `yaml:"max_df"`
	NgramRange  string    `yaml:"ngram_range"`
	MeanScore   *float64  `yaml:"mean_score"`
	StdScore    *float64  `yaml:"std_score,omitempty"`
	FoldScores  []float64 `yaml:"fold_scores,flow"`
	Error       string    `yaml:"error,omitempty"`
	BestOverall bool      `yaml:"best,omitempty"`
}

// TrainingReport summarises a training run
type TrainingReport struct {
	ModelID         string                  `yaml:"model_id"`
	TrainedAt       time.Time               `yaml:"trained_at"`
	Duration        string                  `yaml:"duration"`
	TrainCount      int                     `yaml:"train_count"`
	TestCount       int                     `yaml:"test_count"`
	NormalizeCorpus bool                    `yaml:"normalize_corpus"`
	Scoring         string                  `yaml:"scoring"`
	BestParams      ml.Params               `yaml:"best_params"`
	BestScore       float64                 `yaml:"best_score"`
	TestMetrics     *core.EvaluationMetrics `yaml:"test_metrics,omitempty"`
	Candidates      []Candidate             `yaml:"candidates"`
}

// FromResult builds the report of a training run
func FromResult(result *core.TrainingResult) *TrainingReport {
	model := result.Model
	r := &TrainingReport{
		ModelID:         model.ID,
		TrainedAt:       model.TrainedAt,
		Duration:        result.Duration.Round(time.Millisecond).String(),
		TrainCount:      result.TrainCount,
		TestCount:       result.TestCount,
		NormalizeCorpus: model.NormalizeCorpus,
		Scoring:         model.Scoring,
		BestParams:      model.Params,
		BestScore:       model.BestScore,
		TestMetrics:     model.TestMetrics,
	}
	if result.Search == nil {
		return r
	}

	for i, c := range result.Search.Candidates {
		entry := Candidate{
			Rank:        c.Rank,
			Alpha:       c.Params.Alpha,
			MaxDF:       c.Params.MaxDF,
			NgramRange:  c.Params.NgramRange.String(),
			FoldScores:  c.FoldScores,
			Error:       c.Error,
			BestOverall: i == result.Search.BestIndex,
		}
		// NaN cannot be represented in the report, a failed candidate has no score
		if !c.Failed() {
			entry.MeanScore = ptr(c.MeanScore)
			if !math.IsNaN(c.StdScore) {
				entry.StdScore = ptr(c.StdScore)
			}
		}
		r.Candidates = append(r.Candidates, entry)
	}
	return r
}

func ptr(f float64) *float64 {
	return &f
}

// Encode writes the report as YAML
func (r *TrainingReport) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode training report: %w", err)
	}
	return enc.Close()
}

// WriteFile writes the report to path, creating parent directories as needed
func (r *TrainingReport) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create training report: %w", err)
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile loads a report written by WriteFile
func ReadFile(path string) (*TrainingReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read training report: %w", err)
	}
	var r TrainingReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse training report %s: %w", path, err)
	}
	return &r, nil
}
