package text

import (
	"fmt"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/jdkato/prose/tokenize"
	"go.uber.org/zap"
)

// Tokenizer splits text into pieces
type Tokenizer interface {
	Tokenize(text string) []string
}

// Lemmatizer maps an inflected word to its dictionary form
type Lemmatizer interface {
	Lemma(word string) string
}

// Normalizer turns raw message text into the cleaned, lemmatized token string the
// classifier is trained on. It is read-only once built and safe for concurrent use.
type Normalizer struct {
	sentences  Tokenizer
	words      Tokenizer
	lemmatizer Lemmatizer
	stopwords  map[string]struct{}
}

// NewNormalizer loads the tokenizer models, the English lemma dictionary and the
// stopword list. An empty stopwordsPath selects the built-in English list.
func NewNormalizer(stopwordsPath string, logger *zap.Logger) (*Normalizer, error) {
	sentences, err := newSentenceTokenizer()
	if err != nil {
		return nil, err
	}

	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("failed to load English lemma dictionary: %w", err)
	}

	stopwords := DefaultStopwords()
	if stopwordsPath != "" {
		stopwords, err = LoadStopwords(stopwordsPath)
		if err != nil {
			return nil, err
		}
	}

	logger.Info("Text normalizer initialized",
		zap.Int("stopwords", len(stopwords)),
		zap.String("stopwords_path", stopwordsPath))

	return NewNormalizerWith(sentences, tokenize.NewTreebankWordTokenizer(), lemmatizer, stopwords), nil
}

// NewNormalizerWith assembles a Normalizer from already loaded resources
func NewNormalizerWith(sentences, words Tokenizer, lemmatizer Lemmatizer, stopwords map[string]struct{}) *Normalizer {
	return &Normalizer{
		sentences:  sentences,
		words:      words,
		lemmatizer: lemmatizer,
		stopwords:  stopwords,
	}
}

// newSentenceTokenizer loads the Punkt English model, which panics on a corrupt model
func newSentenceTokenizer() (t *tokenize.PunktSentenceTokenizer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to load sentence tokenizer model: %v", r)
		}
	}()
	return tokenize.NewPunktSentenceTokenizer(), nil
}

// Normalize cleans a raw message:
//  1. word runs of one or two characters are removed
//  2. digits are removed
//  3. whitespace runs collapse to a single space
//  4. the text is lowercased
//  5. the text is split into sentences and then words
//  6. stopwords are dropped and the remaining words lemmatized
//
// The words are joined with single spaces. Lemmas come from golem's English
// dictionary, which covers every part of speech, so verbs and adjectives are
// reduced too (running becomes run, better becomes good).
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	s = StripShortWords(s)
	s = RemoveDigits(s)
	s = CollapseWhitespace(s)
	s = Lower(s)

	tokens := n.Tokenize(s)
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := n.stopwords[tok]; stop {
			continue
		}
		lemma := strings.ToLower(n.lemmatizer.Lemma(tok))
		if lemma == "" {
			continue
		}
		kept = append(kept, lemma)
	}

	return strings.Join(kept, " ")
}

// Tokenize splits text into sentences and each sentence into word tokens
func (n *Normalizer) Tokenize(s string) []string {
	var tokens []string
	for _, sentence := range n.sentences.Tokenize(s) {
		for _, tok := range n.words.Tokenize(sentence) {
			if tok = strings.TrimSpace(tok); tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}

// IsStopword reports whether word is in the normalizer's stopword list
func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stopwords[word]
	return ok
}
