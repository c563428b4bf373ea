package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNgramRange(t *testing.T) {
	for _, in := range []string{"1,2", "1-2", "(1, 2)", "[1,2]"} {
		r, err := ParseNgramRange(in)
		require.NoError(t, err, in)
		assert.Equal(t, NgramRange{Min: 1, Max: 2}, r, in)
	}

	for _, in := range []string{"", "1", "2,1", "0,1", "a,b"} {
		_, err := ParseNgramRange(in)
		assert.Error(t, err, in)
	}
}

func TestParamsValidate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())
	assert.Error(t, Params{NgramRange: NgramRange{1, 1}, MaxDF: 0, Alpha: 1}.Validate())
	assert.Error(t, Params{NgramRange: NgramRange{1, 1}, MaxDF: 1.5, Alpha: 1}.Validate())
	assert.Error(t, Params{NgramRange: NgramRange{1, 1}, MaxDF: 1, Alpha: 0}.Validate())
	assert.Error(t, Params{NgramRange: NgramRange{2, 1}, MaxDF: 1, Alpha: 1}.Validate())
}

func TestParamsString(t *testing.T) {
	p := Params{NgramRange: NgramRange{1, 2}, MaxDF: 0.85, Alpha: 0.1}
	assert.Equal(t, "alpha=0.1 max_df=0.85 ngram_range=(1, 2)", p.String())
}
