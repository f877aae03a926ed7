// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tokenize splits text into the token grid used by the linker.
//
// Tokens are whitespace-delimited words with leading and trailing punctuation
// peeled off into their own tokens. Interior punctuation is kept, so
// "something@bbc.co.uk" and "didn't" stay single tokens. Offsets are
// character (rune) offsets. Dotted abbreviations such as "U.S." and "e.g."
// keep their final period.
package tokenize

import (
	"strings"
	"unicode"

	"github.com/pdiddy/entity-linker/pkg/types"
)

const (
	prefixPunct = `([{"'«“‘`
	suffixPunct = `)]}"'»”’.,;:!?`
)

// Tokenize returns the tokens of text in order.
func Tokenize(text string) []types.Token {
	var tokens []types.Token
	runes := []rune(text)
	start := -1
	for i, r := range runes {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = appendWord(tokens, runes[start:i], start)
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = appendWord(tokens, runes[start:], start)
	}
	return tokens
}

// Document tokenizes text and wraps it in a Document.
func Document(text string) *types.Document {
	return types.NewDocument(text, Tokenize(text))
}

// appendWord splits one whitespace-delimited word into prefix punctuation,
// the core, and suffix punctuation.
func appendWord(tokens []types.Token, word []rune, offset int) []types.Token {
	lo, hi := 0, len(word)
	for lo < hi && strings.ContainsRune(prefixPunct, word[lo]) {
		tokens = append(tokens, types.Token{Text: string(word[lo]), Start: offset + lo, Len: 1})
		lo++
	}

	var suffix []types.Token
	for hi > lo && strings.ContainsRune(suffixPunct, word[hi-1]) {
		if word[hi-1] == '.' && isAbbreviation(word[lo:hi]) {
			break
		}
		hi--
		suffix = append(suffix, types.Token{Text: string(word[hi]), Start: offset + hi, Len: 1})
	}

	if hi > lo {
		tokens = append(tokens, types.Token{Text: string(word[lo:hi]), Start: offset + lo, Len: hi - lo})
	}
	for i := len(suffix) - 1; i >= 0; i-- {
		tokens = append(tokens, suffix[i])
	}
	return tokens
}

// isAbbreviation reports whether word is a dotted abbreviation: two or more
// letter groups of at most two letters, each followed by a period.
func isAbbreviation(word []rune) bool {
	if len(word) < 4 || word[len(word)-1] != '.' {
		return false
	}
	parts := strings.Split(string(word[:len(word)-1]), ".")
	if len(parts) < 2 {
		return false
	}
	for _, p := range parts {
		n := 0
		for _, r := range p {
			if !unicode.IsLetter(r) {
				return false
			}
			n++
		}
		if n == 0 || n > 2 {
			return false
		}
	}
	return true
}
