package ml

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Label is a class of the binary target
type Label int

// NgramRange is the inclusive range of word n-gram lengths the vectorizer extracts
type NgramRange struct {
	Min int
	Max int
}

// String renders the range as "(min, max)"
func (r NgramRange) String() string {
	return fmt.Sprintf("(%d, %d)", r.Min, r.Max)
}

// MarshalJSON encodes the range as a two element array
func (r NgramRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Min, r.Max})
}

// UnmarshalJSON decodes a two element array
func (r *NgramRange) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("ngram range must be a [min, max] pair: %w", err)
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// MarshalYAML encodes the range as a two element sequence
func (r NgramRange) MarshalYAML() (interface{}, error) {
	return []int{r.Min, r.Max}, nil
}

// UnmarshalYAML decodes a two element sequence
func (r *NgramRange) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var pair []int
	if err := unmarshal(&pair); err != nil {
		return fmt.Errorf("ngram range must be a [min, max] pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("ngram range must be a [min, max] pair, got %d values", len(pair))
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

// ParseNgramRange parses "1,2", "1-2" or "(1, 2)"
func ParseNgramRange(s string) (NgramRange, error) {
	cleaned := strings.Trim(strings.TrimSpace(s), "()[]")
	parts := strings.FieldsFunc(cleaned, func(r rune) bool {
		return r == ',' || r == '-' || r == ' '
	})
	if len(parts) != 2 {
		return NgramRange{}, fmt.Errorf("invalid ngram range %q", s)
	}
	lo, err := strconv.Atoi(parts[0])
	if err != nil {
		return NgramRange{}, fmt.Errorf("invalid ngram range %q: %w", s, err)
	}
	hi, err := strconv.Atoi(parts[1])
	if err != nil {
		return NgramRange{}, fmt.Errorf("invalid ngram range %q: %w", s, err)
	}
	r := NgramRange{Min: lo, Max: hi}
	return r, r.Validate()
}

// Validate checks 1 <= Min <= Max
func (r NgramRange) Validate() error {
	if r.Min < 1 || r.Max < r.Min {
		return fmt.Errorf("invalid ngram range %s", r)
	}
	return nil
}

// Params are the hyperparameters of a TF-IDF + naive Bayes pipeline
type Params struct {
	NgramRange NgramRange `json:"ngram_range" yaml:"ngram_range"`
	MaxDF      float64    `json:"max_df" yaml:"max_df"`
	Alpha      float64    `json:"alpha" yaml:"alpha"`
}

// DefaultParams mirrors the vectorizer and classifier defaults
func DefaultParams() Params {
	return Params{NgramRange: NgramRange{Min: 1, Max: 1}, MaxDF: 1.0, Alpha: 1.0}
}

func (p Params) String() string {
	return fmt.Sprintf("alpha=%g max_df=%g ngram_range=%s", p.Alpha, p.MaxDF, p.NgramRange)
}

// Validate checks that the parameters describe a fittable pipeline
func (p Params) Validate() error {
	if err := p.NgramRange.Validate(); err != nil {
		return err
	}
	if p.MaxDF <= 0 || p.MaxDF > 1 {
		return fmt.Errorf("max_df must be in (0, 1], got %g", p.MaxDF)
	}
	if p.Alpha <= 0 {
		return fmt.Errorf("alpha must be positive, got %g", p.Alpha)
	}
	return nil
}

// Grid is the hyperparameter search space
type Grid struct {
	NgramRanges []NgramRange `yaml:"ngram_ranges"`
	MaxDF       []float64    `yaml:"max_df"`
	Alpha       []float64    `yaml:"alpha"`
}

// DefaultGrid is the 18 candidate search space used for training
func DefaultGrid() Grid {
	return Grid{
		NgramRanges: []NgramRange{{Min: 1, Max: 1}, {Min: 1, Max: 2}},
		MaxDF:       []float64{0.75, 0.85, 1.0},
		Alpha:       []float64{0.1, 0.5, 1.0},
	}
}

// Candidates expands the grid in parameter-name order: alpha varies slowest,
// then max_df, then the n-gram range
func (g Grid) Candidates() []Params {
	candidates := make([]Params, 0, len(g.Alpha)*len(g.MaxDF)*len(g.NgramRanges))
	for _, alpha := range g.Alpha {
		for _, maxDF := range g.MaxDF {
			for _, ngram := range g.NgramRanges {
				candidates = append(candidates, Params{NgramRange: ngram, MaxDF: maxDF, Alpha: alpha})
			}
		}
	}
	return candidates
}

// Validate checks every axis is non-empty and every candidate valid
func (g Grid) Validate() error {
	if len(g.NgramRanges) == 0 || len(g.MaxDF) == 0 || len(g.Alpha) == 0 {
		return fmt.Errorf("parameter grid has an empty axis")
	}
	for _, p := range g.Candidates() {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}
