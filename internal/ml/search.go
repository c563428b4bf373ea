package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SearchOptions configures a cross-validated grid search
type SearchOptions struct {
	Folds   int
	Scoring string
	Workers int
}

// CandidateResult holds the cross-validation outcome of one parameter set
type CandidateResult struct {
	Params     Params    `json:"params" yaml:"params"`
	FoldScores []float64 `json:"fold_scores" yaml:"fold_scores"`
	MeanScore  float64   `json:"mean_score" yaml:"mean_score"`
	StdScore   float64   `json:"std_score" yaml:"std_score"`
	Rank       int       `json:"rank" yaml:"rank"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether any fold of the candidate failed to fit
func (c CandidateResult) Failed() bool {
	return math.IsNaN(c.MeanScore)
}

// SearchResult is the outcome of a grid search
type SearchResult struct {
	Candidates []CandidateResult
	BestIndex  int
	Best       *Pipeline
}

// BestParams returns the winning parameter set
func (r *SearchResult) BestParams() Params {
	return r.Candidates[r.BestIndex].Params
}

// BestScore returns the mean cross-validation score of the winning parameter set
func (r *SearchResult) BestScore() float64 {
	return r.Candidates[r.BestIndex].MeanScore
}

// GridSearch scores every grid candidate with stratified k-fold cross-validation and
// refits the best one on all of docs. The best candidate is the first one, in grid
// order, with the highest mean score. A candidate with a failing fold scores NaN and
// ranks last; if every candidate fails the search fails.
func GridSearch(ctx context.Context, docs []string, labels []Label, grid Grid, opts SearchOptions) (*SearchResult, error) {
	if len(docs) != len(labels) {
		return nil, fmt.Errorf("%w: %d documents, %d labels", ErrLengthMismatch, len(docs), len(labels))
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	scorer, err := LookupScorer(opts.Scoring)
	if err != nil {
		return nil, err
	}
	folds, err := StratifiedKFold(labels, opts.Folds)
	if err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	candidates := grid.Candidates()
	results := make([]CandidateResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, params := range candidates {
		g.Go(func() error {
			res, err := crossValidate(gctx, docs, labels, folds, params, scorer)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := rankCandidates(results)
	if best < 0 {
		return nil, fmt.Errorf("all %d candidates failed to fit: %s", len(results), results[0].Error)
	}

	pipeline := NewPipeline(results[best].Params)
	if err := pipeline.Fit(docs, labels); err != nil {
		return nil, fmt.Errorf("failed to refit best candidate %s: %w", results[best].Params, err)
	}

	return &SearchResult{Candidates: results, BestIndex: best, Best: pipeline}, nil
}

// crossValidate scores one candidate on every fold. Fit failures are recorded on the
// result; only cancellation is returned as an error.
func crossValidate(ctx context.Context, docs []string, labels []Label, folds []Fold, params Params, scorer Scorer) (CandidateResult, error) {
	res := CandidateResult{Params: params, FoldScores: make([]float64, len(folds))}

	for f, fold := range folds {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		score, err := scoreFold(docs, labels, fold, params, scorer)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return res, err
			}
			score = math.NaN()
			if res.Error == "" {
				res.Error = err.Error()
			}
		}
		res.FoldScores[f] = score
	}

	res.MeanScore, res.StdScore = meanStd(res.FoldScores)
	return res, nil
}

func scoreFold(docs []string, labels []Label, fold Fold, params Params, scorer Scorer) (float64, error) {
	trainDocs, trainLabels := subset(docs, labels, fold.Train)
	testDocs, testLabels := subset(docs, labels, fold.Test)

	pipeline := NewPipeline(params)
	if err := pipeline.Fit(trainDocs, trainLabels); err != nil {
		return 0, err
	}
	predicted, err := pipeline.PredictAll(testDocs)
	if err != nil {
		return 0, err
	}
	m, err := NewConfusionMatrix(testLabels, predicted)
	if err != nil {
		return 0, err
	}
	return scorer(m), nil
}

func subset(docs []string, labels []Label, idx []int) ([]string, []Label) {
	d := make([]string, len(idx))
	l := make([]Label, len(idx))
	for k, i := range idx {
		d[k] = docs[i]
		l[k] = labels[i]
	}
	return d, l
}

// meanStd returns the mean and population standard deviation; NaN propagates
func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		sq += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}

// rankCandidates assigns competition ranks by mean score, failed candidates last,
// and returns the index of the first best candidate or -1 when all failed
func rankCandidates(results []CandidateResult) int {
	best := -1
	for i := range results {
		if results[i].Failed() {
			continue
		}
		if best < 0 || results[i].MeanScore > results[best].MeanScore {
			best = i
		}
	}

	succeeded := 0
	for i := range results {
		if !results[i].Failed() {
			succeeded++
		}
	}
	for i := range results {
		if results[i].Failed() {
			results[i].Rank = succeeded + 1
			continue
		}
		rank := 1
		for j := range results {
			if !results[j].Failed() && results[j].MeanScore > results[i].MeanScore {
				rank++
			}
		}
		results[i].Rank = rank
	}
	return best
}
