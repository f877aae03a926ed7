// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the entity-linker pipeline.
// Implements: the tokenized document model read and mutated by the linking
// stage (Document, Token, Span) and the transient Mention record produced by
// parsing a linking service response.
//
// All character offsets are counted in Unicode code points, not bytes.
package types

import (
	"encoding/json"
	"unicode/utf8"
)

// LabelDBpedia is the label given to every span produced by the linker.
const LabelDBpedia = "DBPEDIA_ENT"

// SpanGroupOriginal is the span group that receives a document's previous
// entities when the linker overwrites them.
const SpanGroupOriginal = "ents_original"

// Token is an atomic unit of a Document. Tokens are contiguous and
// non-overlapping; a token may carry internal punctuation
// (e.g. "something@bbc.co.uk").
type Token struct {
	// Text is the token's surface text.
	Text string `json:"text" yaml:"text"`

	// Start is the character offset of the token in the document text.
	Start int `json:"start" yaml:"start"`

	// Len is the token length in characters.
	Len int `json:"len" yaml:"len"`
}

// End returns the character offset one past the token's last character.
func (t Token) End() int { return t.Start + t.Len }

// Span is a range of whole tokens in a Document, optionally linked to a
// knowledge-base identifier. Span boundaries always coincide with token
// boundaries.
type Span struct {
	// StartToken is the index of the first token; EndToken is exclusive.
	StartToken int `json:"start_token" yaml:"start_token"`
	EndToken   int `json:"end_token" yaml:"end_token"`

	// StartChar and EndChar are the character range covered by the tokens.
	StartChar int `json:"start_char" yaml:"start_char"`
	EndChar   int `json:"end_char" yaml:"end_char"`

	// Text is the document text covered by the span.
	Text string `json:"text" yaml:"text"`

	// Label is the entity label (LabelDBpedia for linked spans).
	Label string `json:"label" yaml:"label"`

	// KBID is the knowledge-base identifier, empty when the service did not
	// resolve the mention.
	KBID string `json:"kb_id,omitempty" yaml:"kb_id,omitempty"`

	// Raw is the service response entry the span was built from.
	Raw json.RawMessage `json:"raw,omitempty" yaml:"-"`
}

// Overlaps reports whether s and o share at least one token.
func (s Span) Overlaps(o Span) bool {
	return s.StartToken < o.EndToken && o.StartToken < s.EndToken
}

// Mention is a candidate entity occurrence reported by the linking service.
// It lives only between parsing and reconciliation.
type Mention struct {
	// Start is the character offset reported by the service.
	Start int

	// End is Start plus the surface form length in characters.
	End int

	// SurfaceForm is the mention text as reported by the service.
	SurfaceForm string

	// URI is the knowledge-base identifier, empty when none was produced.
	URI string

	// Raw is the response entry, attached to the resulting span.
	Raw json.RawMessage
}

// Document is a tokenized text plus its entity annotations. The linker
// receives documents by reference and mutates them in place.
type Document struct {
	// ID is an optional caller-assigned identifier (file name, record id).
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Text is the full document text.
	Text string `json:"text" yaml:"text"`

	// Tokens is the ordered token sequence covering Text.
	Tokens []Token `json:"tokens" yaml:"tokens"`

	// Ents is the primary entity collection. No two spans overlap.
	Ents []Span `json:"ents" yaml:"ents"`

	// Spans holds named span groups. Spans in a group may overlap.
	Spans map[string][]Span `json:"spans,omitempty" yaml:"spans,omitempty"`

	// RawResult is the last linking service payload applied to the document.
	RawResult json.RawMessage `json:"raw_result,omitempty" yaml:"-"`

	runes []rune
}

// NewDocument builds a Document from text and its tokens.
func NewDocument(text string, tokens []Token) *Document {
	return &Document{
		Text:   text,
		Tokens: tokens,
		Spans:  make(map[string][]Span),
	}
}

// CharLen returns the length of the document text in characters.
func (d *Document) CharLen() int {
	return utf8.RuneCountInString(d.Text)
}

// Slice returns the document text between two character offsets.
func (d *Document) Slice(start, end int) string {
	if d.runes == nil {
		d.runes = []rune(d.Text)
	}
	if start < 0 {
		start = 0
	}
	if end > len(d.runes) {
		end = len(d.runes)
	}
	if start >= end {
		return ""
	}
	return string(d.runes[start:end])
}

// CharSpan returns the span whose boundaries are exactly the character range
// [start, end). It reports false when start does not begin a token, end does
// not end a token, or the range is empty.
func (d *Document) CharSpan(start, end int, label, kbID string) (Span, bool) {
	if start >= end {
		return Span{}, false
	}
	first, last := -1, -1
	for i, t := range d.Tokens {
		if t.Start == start {
			first = i
		}
		if t.End() == end {
			last = i
			break
		}
	}
	if first < 0 || last < first {
		return Span{}, false
	}
	return d.TokenSpan(first, last+1, label, kbID), true
}

// TokenSpan returns the span covering tokens [startToken, endToken). The
// caller guarantees 0 <= startToken < endToken <= len(d.Tokens).
func (d *Document) TokenSpan(startToken, endToken int, label, kbID string) Span {
	startChar := d.Tokens[startToken].Start
	endChar := d.Tokens[endToken-1].End()
	return Span{
		StartToken: startToken,
		EndToken:   endToken,
		StartChar:  startChar,
		EndChar:    endChar,
		Text:       d.Slice(startChar, endChar),
		Label:      label,
		KBID:       kbID,
	}
}

// SetSpanGroup stores spans under the named group.
func (d *Document) SetSpanGroup(name string, spans []Span) {
	if d.Spans == nil {
		d.Spans = make(map[string][]Span)
	}
	d.Spans[name] = spans
}
