// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/entity-linker/pkg/types"
)

// ExportEntry holds one stored document for export.
type ExportEntry struct {
	ID       string                  `json:"id" yaml:"id"`
	Text     string                  `json:"text" yaml:"text"`
	Entities []ExportSpan            `json:"entities" yaml:"entities"`
	Groups   map[string][]ExportSpan `json:"groups,omitempty" yaml:"groups,omitempty"`
}

// ExportSpan holds the span fields included in an export.
type ExportSpan struct {
	Text  string `json:"text" yaml:"text"`
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
	Label string `json:"label" yaml:"label"`
	KBID  string `json:"kb_id,omitempty" yaml:"kb_id,omitempty"`
}

// ExportYAML writes all stored documents to {dir}/export.yaml and returns
// the file path.
func (s *Store) ExportYAML(ctx context.Context) (string, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes all stored documents to {dir}/export.json and returns
// the file path.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context) ([]ExportEntry, error) {
	ids, err := s.DocumentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	entries := make([]ExportEntry, 0, len(ids))
	for _, id := range ids {
		doc, err := s.LoadDocument(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("querying for export: %w", err)
		}
		entries = append(entries, NewExportEntry(doc))
	}
	return entries, nil
}

// NewExportEntry flattens a document into its export form.
func NewExportEntry(doc *types.Document) ExportEntry {
	e := ExportEntry{
		ID:       doc.ID,
		Text:     doc.Text,
		Entities: exportSpans(doc.Ents),
	}
	if len(doc.Spans) > 0 {
		e.Groups = make(map[string][]ExportSpan, len(doc.Spans))
		for name, spans := range doc.Spans {
			e.Groups[name] = exportSpans(spans)
		}
	}
	return e
}

func exportSpans(spans []types.Span) []ExportSpan {
	out := make([]ExportSpan, len(spans))
	for i, sp := range spans {
		out[i] = ExportSpan{
			Text:  sp.Text,
			Start: sp.StartChar,
			End:   sp.EndChar,
			Label: sp.Label,
			KBID:  sp.KBID,
		}
	}
	return out
}
