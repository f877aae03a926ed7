// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdiddy/entity-linker/internal/spotlight"
	"github.com/pdiddy/entity-linker/internal/tokenize"
	"github.com/pdiddy/entity-linker/pkg/types"
)

// inputFormat selects how an input source is split into documents.
type inputFormat int

const (
	// formatWhole treats each source as one document.
	formatWhole inputFormat = iota
	// formatLines treats each non-empty line as a document.
	formatLines
	// formatJSONL reads one jsonRecord per line.
	formatJSONL
)

// jsonRecord is one line of JSONL input. Entities are character ranges that
// become the document's existing entities.
type jsonRecord struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Entities []jsonEntity `json:"entities"`
}

type jsonEntity struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// readSources reads documents from the named files, or from stdin when no
// file (or "-") is given. Warnings about unusable entities go to w.
func readSources(paths []string, format inputFormat, w io.Writer) ([]*types.Document, error) {
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	var docs []*types.Document
	for _, path := range paths {
		got, err := readSource(path, format, w)
		if err != nil {
			return nil, err
		}
		docs = append(docs, got...)
	}
	return docs, nil
}

// readSource reads the documents of one file, or stdin for "-".
func readSource(path string, format inputFormat, w io.Writer) ([]*types.Document, error) {
	if path == "-" {
		return readDocuments(os.Stdin, "stdin", format, w)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return readDocuments(f, path, format, w)
}

// readDocuments splits r into documents. Document IDs are the source name,
// or name:line for line-based formats when records carry no ID.
func readDocuments(r io.Reader, name string, format inputFormat, w io.Writer) ([]*types.Document, error) {
	if format == formatWhole {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		doc := tokenize.Document(string(data))
		doc.ID = name
		return []*types.Document{doc}, nil
	}

	var docs []*types.Document
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		id := fmt.Sprintf("%s:%d", name, line)

		if format == formatLines {
			doc := tokenize.Document(text)
			doc.ID = id
			docs = append(docs, doc)
			continue
		}

		var rec jsonRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("%s: parse error: %w", id, err)
		}
		if rec.ID != "" {
			id = rec.ID
		}
		docs = append(docs, recordDocument(id, rec, w))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return docs, nil
}

// recordDocument tokenizes a JSONL record and attaches its entities. Entities
// that do not fall on token boundaries are skipped with a warning, and
// overlapping entities are reduced to a non-overlapping subset.
func recordDocument(id string, rec jsonRecord, w io.Writer) *types.Document {
	doc := tokenize.Document(rec.Text)
	doc.ID = id

	n := doc.CharLen()
	for _, e := range rec.Entities {
		if e.Start < 0 || e.End > n {
			fmt.Fprintf(w, "warning: %s: entity [%d,%d) %s is outside the text (%d characters), skipped\n", id, e.Start, e.End, e.Label, n)
			continue
		}
		span, ok := doc.CharSpan(e.Start, e.End, e.Label, "")
		if !ok {
			fmt.Fprintf(w, "warning: %s: entity [%d,%d) %s is not token aligned, skipped\n", id, e.Start, e.End, e.Label)
			continue
		}
		doc.Ents = append(doc.Ents, span)
	}
	if spotlight.HasOverlap(doc.Ents) {
		fmt.Fprintf(w, "warning: %s: overlapping entities, keeping the longest\n", id)
		doc.Ents = spotlight.FilterSpans(doc.Ents)
	}
	return doc
}
