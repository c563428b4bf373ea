package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfusionMatrix(t *testing.T) {
	m, err := NewConfusionMatrix([]Label{1, 1, 0, 0, 1}, []Label{1, 0, 0, 1, 1})
	require.NoError(t, err)

	assert.Equal(t, ConfusionMatrix{TruePositives: 2, FalsePositives: 1, TrueNegatives: 1, FalseNegatives: 1}, m)
	assert.Equal(t, 5, m.Total())
	assert.InDelta(t, 0.6, m.Accuracy(), 1e-12)
	assert.InDelta(t, 2.0/3.0, m.Precision(), 1e-12)
	assert.InDelta(t, 2.0/3.0, m.Recall(), 1e-12)
	assert.InDelta(t, 2.0/3.0, m.F1(), 1e-12)
}

func TestMetricsZeroDivision(t *testing.T) {
	m, err := NewConfusionMatrix([]Label{0, 0}, []Label{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Accuracy())
	assert.Zero(t, m.Precision())
	assert.Zero(t, m.Recall())
	assert.Zero(t, m.F1())

	assert.Zero(t, ConfusionMatrix{}.Accuracy())
}

func TestMetricHelpers(t *testing.T) {
	acc, err := Accuracy([]Label{1, 0, 1, 1}, []Label{1, 0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)

	f1, err := F1([]Label{1, 0, 1, 1}, []Label{1, 0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, f1, 1e-12)

	_, err = Accuracy([]Label{1}, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestLookupScorer(t *testing.T) {
	m := ConfusionMatrix{TruePositives: 1, FalseNegatives: 1, TrueNegatives: 2}
	for name, want := range map[string]float64{
		"accuracy":  0.75,
		"f1":        2.0 / 3.0,
		"precision": 1,
		"recall":    0.5,
	} {
		s, err := LookupScorer(name)
		require.NoError(t, err, name)
		assert.InDelta(t, want, s(m), 1e-12, name)
	}

	_, err := LookupScorer("roc_auc")
	assert.Error(t, err)
}
