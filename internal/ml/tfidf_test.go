package ml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		ngrams NgramRange
		want   []string
	}{
		{"unigrams drop short tokens", "Free FREE a win!", NgramRange{1, 1}, []string{"free", "free", "win"}},
		{"unigrams then bigrams", "call now free", NgramRange{1, 2}, []string{"call", "now", "free", "call now", "now free"}},
		{"bigrams only", "call now free", NgramRange{2, 2}, []string{"call now", "now free"}},
		{"too short for bigrams", "one", NgramRange{1, 2}, []string{"one"}},
		{"empty", "", NgramRange{1, 2}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.doc, tt.ngrams))
		})
	}
}

func TestTfidfFitTransform(t *testing.T) {
	v := NewTfidfVectorizer(NgramRange{1, 1}, 1.0)
	rows, err := v.FitTransform([]string{"free money", "free lunch", "hello world"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"free": 0, "hello": 1, "lunch": 2, "money": 3, "world": 4}, v.Vocabulary)

	idfFree := math.Log(4.0/3.0) + 1
	idfRare := math.Log(4.0/2.0) + 1
	assert.InDelta(t, idfFree, v.IDF[0], 1e-12)
	assert.InDelta(t, idfRare, v.IDF[3], 1e-12)

	norm := math.Sqrt(idfFree*idfFree + idfRare*idfRare)
	assert.Equal(t, []int{0, 3}, rows[0].Indices)
	assert.InDelta(t, idfFree/norm, rows[0].Values[0], 1e-12)
	assert.InDelta(t, idfRare/norm, rows[0].Values[1], 1e-12)

	var sq float64
	for _, x := range rows[2].Values {
		sq += x * x
	}
	assert.InDelta(t, 1.0, sq, 1e-12)
}

func TestTfidfCountsRepeatedTerms(t *testing.T) {
	v := NewTfidfVectorizer(NgramRange{1, 1}, 1.0)
	require.NoError(t, v.Fit([]string{"cash cash prize", "hello"}))

	row, err := v.Transform("cash cash prize")
	require.NoError(t, err)
	require.Equal(t, []int{0, 2}, row.Indices)

	idf := math.Log(3.0/2.0) + 1
	norm := math.Sqrt(4*idf*idf + idf*idf)
	assert.InDelta(t, 2*idf/norm, row.Values[0], 1e-12)
	assert.InDelta(t, idf/norm, row.Values[1], 1e-12)
}

func TestTfidfMaxDF(t *testing.T) {
	v := NewTfidfVectorizer(NgramRange{1, 1}, 0.5)
	require.NoError(t, v.Fit([]string{"free money", "free lunch", "hello world"}))

	assert.NotContains(t, v.Vocabulary, "free")
	assert.Equal(t, 4, v.NumFeatures())
}

func TestTfidfErrors(t *testing.T) {
	v := NewTfidfVectorizer(NgramRange{1, 1}, 1.0)
	err := v.Fit([]string{"a b", "c", ""})
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	v = NewTfidfVectorizer(NgramRange{1, 1}, 0.5)
	err = v.Fit([]string{"spam spam", "spam"})
	assert.ErrorIs(t, err, ErrNoTermsRemain)

	_, err = NewTfidfVectorizer(NgramRange{1, 1}, 1.0).Transform("anything")
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestTfidfUnknownTerms(t *testing.T) {
	v := NewTfidfVectorizer(NgramRange{1, 2}, 1.0)
	require.NoError(t, v.Fit([]string{"free money now", "see you soon"}))
	assert.Contains(t, v.Vocabulary, "free money")

	row, err := v.Transform("completely unrelated words")
	require.NoError(t, err)
	assert.Zero(t, row.Len())
}
