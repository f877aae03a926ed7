// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/entity-linker/pkg/types"
)

func TestReadDocumentsWhole(t *testing.T) {
	docs, err := readDocuments(strings.NewReader("Berlin is big.\nParis too.\n"), "a.txt", formatWhole, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.txt", docs[0].ID)
	assert.Equal(t, "Berlin is big.\nParis too.\n", docs[0].Text)
	assert.NotEmpty(t, docs[0].Tokens)
}

func TestReadDocumentsLines(t *testing.T) {
	docs, err := readDocuments(strings.NewReader("Berlin is big.\n\nParis too.\n"), "a.txt", formatLines, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt:1", docs[0].ID)
	assert.Equal(t, "a.txt:3", docs[1].ID)
	assert.Equal(t, "Paris too.", docs[1].Text)
}

func TestReadDocumentsJSONL(t *testing.T) {
	input := `{"id": "r1", "text": "Google LLC is big.", "entities": [{"start": 0, "end": 10, "label": "ORG"}]}
{"text": "No entities here."}
`
	var warn bytes.Buffer
	docs, err := readDocuments(strings.NewReader(input), "in.jsonl", formatJSONL, &warn)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "r1", docs[0].ID)
	require.Len(t, docs[0].Ents, 1)
	assert.Equal(t, "Google LLC", docs[0].Ents[0].Text)
	assert.Equal(t, "ORG", docs[0].Ents[0].Label)

	assert.Equal(t, "in.jsonl:2", docs[1].ID)
	assert.Empty(t, docs[1].Ents)
	assert.Empty(t, warn.String())
}

func TestReadDocumentsJSONLBadEntities(t *testing.T) {
	input := `{"id": "r1", "text": "Google LLC is big.", "entities": [{"start": 1, "end": 6, "label": "ORG"}, {"start": 0, "end": 6, "label": "ORG"}, {"start": 0, "end": 10, "label": "ORG"}]}`
	var warn bytes.Buffer
	docs, err := readDocuments(strings.NewReader(input), "in.jsonl", formatJSONL, &warn)
	require.NoError(t, err)

	require.Len(t, docs[0].Ents, 1)
	assert.Equal(t, "Google LLC", docs[0].Ents[0].Text)
	assert.Contains(t, warn.String(), "not token aligned")
	assert.Contains(t, warn.String(), "overlapping entities")
}

func TestReadDocumentsJSONLEntityOutsideText(t *testing.T) {
	input := `{"id": "r1", "text": "Grüße aus Köln", "entities": [{"start": 10, "end": 14, "label": "LOC"}, {"start": 10, "end": 15, "label": "LOC"}]}`
	var warn bytes.Buffer
	docs, err := readDocuments(strings.NewReader(input), "in.jsonl", formatJSONL, &warn)
	require.NoError(t, err)

	require.Len(t, docs[0].Ents, 1)
	assert.Equal(t, "Köln", docs[0].Ents[0].Text)
	assert.Contains(t, warn.String(), "outside the text (14 characters)")
}

func TestReadDocumentsJSONLParseError(t *testing.T) {
	_, err := readDocuments(strings.NewReader("{not json}\n"), "in.jsonl", formatJSONL, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in.jsonl:1")
}

func TestReadSourcesFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("Berlin"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("Paris"), 0o644))

	docs, err := readSources([]string{a, b}, formatWhole, &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, a, docs[0].ID)
	assert.Equal(t, "Paris", docs[1].Text)

	_, err = readSources([]string{filepath.Join(dir, "missing.txt")}, formatWhole, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestReadSourceClosesFile(t *testing.T) {
	fds := func() int {
		entries, err := os.ReadDir("/proc/self/fd")
		if err != nil {
			t.Skip("no /proc/self/fd on this platform")
		}
		return len(entries)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("Berlin"), 0o644))

	before := fds()
	for range 10 {
		docs, err := readSource(path, formatWhole, &bytes.Buffer{})
		require.NoError(t, err)
		require.Len(t, docs, 1)
	}
	assert.Equal(t, before, fds(), "each source file must be closed once read")
}

func TestWriteTable(t *testing.T) {
	doc := types.NewDocument("Google LLC", []types.Token{{Text: "Google", Start: 0, Len: 6}, {Text: "LLC", Start: 7, Len: 3}})
	doc.ID = "d1"
	doc.Ents = []types.Span{doc.TokenSpan(0, 2, types.LabelDBpedia, "http://dbpedia.org/resource/Google")}

	var out bytes.Buffer
	require.NoError(t, writeTable(&out, []*types.Document{doc}))
	assert.Contains(t, out.String(), "http://dbpedia.org/resource/Google")
	assert.Contains(t, out.String(), "Google LLC")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Münch...", truncate("München ist schön", 8))
}
