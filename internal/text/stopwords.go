package text

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed stopwords_english.txt
var englishStopwords string

// DefaultStopwords returns a fresh copy of the built-in English stopword list
func DefaultStopwords() map[string]struct{} {
	words, _ := parseStopwords(strings.NewReader(englishStopwords))
	return words
}

// LoadStopwords reads a stopword list with one word per line.
// Blank lines and lines starting with '#' are ignored.
func LoadStopwords(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stopwords file: %w", err)
	}
	defer f.Close()

	words, err := parseStopwords(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read stopwords file %s: %w", path, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("stopwords file %s is empty", path)
	}
	return words, nil
}

func parseStopwords(r io.Reader) (map[string]struct{}, error) {
	words := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[Lower(line)] = struct{}{}
	}
	return words, scanner.Err()
}
