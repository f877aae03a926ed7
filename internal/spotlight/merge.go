// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spotlight

import (
	"encoding/json"
	"slices"
	"sort"

	"github.com/pdiddy/entity-linker/pkg/types"
)

// MergePath records which branch of the merge policy was taken.
type MergePath string

const (
	// MergeAppend: linked spans were appended to the existing entities.
	MergeAppend MergePath = "append"
	// MergeOverwrite: existing entities moved to "ents_original" and replaced.
	MergeOverwrite MergePath = "overwrite"
	// MergePreserve: existing entities kept, linked spans only in the span group.
	MergePreserve MergePath = "preserve"
)

// Merge applies linked spans to the document. When the combined collection
// has no overlapping pair the spans are appended to doc.Ents. On conflict,
// overwrite moves the previous entities to the "ents_original" span group and
// sets doc.Ents to the linked spans (filtered to a non-overlapping subset if
// they overlap each other); otherwise doc.Ents is left alone. In every case
// the linked spans are stored under cfg.SpanGroup and raw becomes the
// document's RawResult.
func Merge(doc *types.Document, spans []types.Span, raw json.RawMessage, cfg types.LinkerConfig) MergePath {
	path := mergeEnts(doc, spans, cfg.OverwriteEnts)

	group := cfg.SpanGroup
	if group == "" {
		group = DefaultSpanGroup
	}
	doc.SetSpanGroup(group, spans)
	doc.RawResult = raw
	return path
}

func mergeEnts(doc *types.Document, spans []types.Span, overwrite bool) MergePath {
	combined := make([]types.Span, 0, len(doc.Ents)+len(spans))
	combined = append(combined, doc.Ents...)
	combined = append(combined, spans...)
	if !HasOverlap(combined) {
		doc.Ents = combined
		return MergeAppend
	}
	if !overwrite {
		return MergePreserve
	}

	doc.SetSpanGroup(types.SpanGroupOriginal, doc.Ents)
	if HasOverlap(spans) {
		doc.Ents = FilterSpans(spans)
	} else {
		doc.Ents = slices.Clone(spans)
	}
	return MergeOverwrite
}

// HasOverlap reports whether any two spans share a token.
func HasOverlap(spans []types.Span) bool {
	sorted := slices.Clone(spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartToken < sorted[j].StartToken
	})
	// Sorted by start, disjoint neighbours leave no room for a later overlap.
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Overlaps(sorted[i-1]) {
			return true
		}
	}
	return false
}

// FilterSpans returns a non-overlapping subset of spans. Longer spans win;
// among equally long spans the earlier one wins. The result is sorted by
// start position.
func FilterSpans(spans []types.Span) []types.Span {
	sorted := slices.Clone(spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		li := sorted[i].EndToken - sorted[i].StartToken
		lj := sorted[j].EndToken - sorted[j].StartToken
		if li != lj {
			return li > lj
		}
		return sorted[i].StartToken < sorted[j].StartToken
	})

	taken := make(map[int]bool)
	var kept []types.Span
	for _, s := range sorted {
		free := true
		for t := s.StartToken; t < s.EndToken; t++ {
			if taken[t] {
				free = false
				break
			}
		}
		if !free {
			continue
		}
		for t := s.StartToken; t < s.EndToken; t++ {
			taken[t] = true
		}
		kept = append(kept, s)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].StartToken < kept[j].StartToken
	})
	return kept
}
