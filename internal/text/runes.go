package text

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IsWordRune reports whether r belongs to a word: a letter, a number or an underscore
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// IsSpace reports whether r is whitespace, including the ASCII information separators
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// StripShortWords removes every maximal run of word characters that is one or two
// code points long. Everything else, including separators, is kept byte for byte.
func StripShortWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runStart, runLen := -1, 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if IsWordRune(r) {
			if runStart < 0 {
				runStart = i
			}
			runLen++
			i += size
			continue
		}
		if runStart >= 0 && runLen > 2 {
			b.WriteString(s[runStart:i])
		}
		runStart, runLen = -1, 0
		b.WriteString(s[i : i+size])
		i += size
	}
	if runStart >= 0 && runLen > 2 {
		b.WriteString(s[runStart:])
	}

	return b.String()
}

// RemoveDigits drops every decimal digit
func RemoveDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsDigit(r) {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

// CollapseWhitespace replaces each run of whitespace with a single space.
// Leading and trailing whitespace is collapsed, not trimmed.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
		} else {
			b.WriteString(s[i : i+size])
			inSpace = false
		}
		i += size
	}
	return b.String()
}

// Lower applies full Unicode lowercasing
func Lower(s string) string {
	// A Caser keeps state, so every call gets its own
	return cases.Lower(language.Und).String(s)
}

// WordTokens returns the maximal runs of word characters that are at least minLen
// code points long, in order of appearance
func WordTokens(s string, minLen int) []string {
	var tokens []string
	runStart, runLen := -1, 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if IsWordRune(r) {
			if runStart < 0 {
				runStart = i
			}
			runLen++
		} else {
			if runStart >= 0 && runLen >= minLen {
				tokens = append(tokens, s[runStart:i])
			}
			runStart, runLen = -1, 0
		}
		i += size
	}
	if runStart >= 0 && runLen >= minLen {
		tokens = append(tokens, s[runStart:])
	}
	return tokens
}
