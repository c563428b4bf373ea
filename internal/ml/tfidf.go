package ml

import (
	"math"
	"sort"
	"strings"

	"github.com/yiyanglaw/spam-email-backend/internal/text"
)

// Vector is a sparse row with strictly increasing feature indices
type Vector struct {
	Indices []int
	Values  []float64
}

// Len returns the number of stored entries
func (v Vector) Len() int {
	return len(v.Indices)
}

// Analyze lowercases a document, extracts word tokens of two or more characters and
// expands them to the n-grams of the given range, shorter n-grams first
func Analyze(doc string, ngrams NgramRange) []string {
	tokens := text.WordTokens(text.Lower(doc), 2)
	if ngrams.Max == 1 {
		return tokens
	}

	minN := ngrams.Min
	var terms []string
	if minN == 1 {
		terms = append(terms, tokens...)
		minN = 2
	}
	for n := minN; n <= ngrams.Max && n <= len(tokens); n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

// TfidfVectorizer converts documents into L2-normalised TF-IDF rows over a vocabulary
// learned by Fit. Terms occurring in more than MaxDF of the training documents are
// dropped; the idf is smoothed as ln((1+n)/(1+df)) + 1.
type TfidfVectorizer struct {
	NgramRange NgramRange     `json:"ngram_range"`
	MaxDF      float64        `json:"max_df"`
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// NewTfidfVectorizer creates an unfitted vectorizer
func NewTfidfVectorizer(ngrams NgramRange, maxDF float64) *TfidfVectorizer {
	return &TfidfVectorizer{NgramRange: ngrams, MaxDF: maxDF}
}

// Fitted reports whether Fit has completed
func (v *TfidfVectorizer) Fitted() bool {
	return v != nil && len(v.Vocabulary) > 0 && len(v.IDF) == len(v.Vocabulary)
}

// NumFeatures returns the vocabulary size
func (v *TfidfVectorizer) NumFeatures() int {
	return len(v.IDF)
}

// Fit learns the vocabulary and idf weights
func (v *TfidfVectorizer) Fit(docs []string) error {
	_, err := v.FitTransform(docs)
	return err
}

// FitTransform learns the vocabulary and returns the TF-IDF rows of docs
func (v *TfidfVectorizer) FitTransform(docs []string) ([]Vector, error) {
	termCounts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		counts := make(map[string]int)
		for _, term := range Analyze(doc, v.NgramRange) {
			counts[term]++
		}
		for term := range counts {
			df[term]++
		}
		termCounts[i] = counts
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	maxDocCount := v.MaxDF * float64(len(docs))
	terms := make([]string, 0, len(df))
	for term, count := range df {
		if float64(count) <= maxDocCount {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil, ErrNoTermsRemain
	}
	sort.Strings(terms)

	n := float64(len(docs))
	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for j, term := range terms {
		vocabulary[term] = j
		idf[j] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	v.Vocabulary = vocabulary
	v.IDF = idf

	rows := make([]Vector, len(docs))
	for i, counts := range termCounts {
		rows[i] = v.weigh(counts)
	}
	return rows, nil
}

// Transform returns the TF-IDF row of a document. Terms outside the vocabulary are ignored.
func (v *TfidfVectorizer) Transform(doc string) (Vector, error) {
	if !v.Fitted() {
		return Vector{}, ErrNotFitted
	}
	counts := make(map[string]int)
	for _, term := range Analyze(doc, v.NgramRange) {
		counts[term]++
	}
	return v.weigh(counts), nil
}

func (v *TfidfVectorizer) weigh(counts map[string]int) Vector {
	type entry struct {
		index int
		count int
	}
	entries := make([]entry, 0, len(counts))
	for term, count := range counts {
		if j, ok := v.Vocabulary[term]; ok {
			entries = append(entries, entry{index: j, count: count})
		}
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	vec := Vector{
		Indices: make([]int, len(entries)),
		Values:  make([]float64, len(entries)),
	}
	var norm float64
	for k, e := range entries {
		w := float64(e.count) * v.IDF[e.index]
		vec.Indices[k] = e.index
		vec.Values[k] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range vec.Values {
			vec.Values[k] /= norm
		}
	}

	return vec
}
