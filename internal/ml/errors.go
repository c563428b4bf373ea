package ml

import "errors"

var (
	// ErrEmptyVocabulary is returned when the training documents contain no terms at all
	ErrEmptyVocabulary = errors.New("empty vocabulary; perhaps the documents only contain stop words")

	// ErrNoTermsRemain is returned when max_df pruning removes every term
	ErrNoTermsRemain = errors.New("after pruning, no terms remain; try a higher max_df")

	// ErrNotFitted is returned when a model is used before Fit
	ErrNotFitted = errors.New("model is not fitted")

	// ErrLengthMismatch is returned when labels and predictions differ in length
	ErrLengthMismatch = errors.New("inconsistent numbers of samples")
)
