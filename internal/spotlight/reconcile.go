// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spotlight

import (
	"go.uber.org/zap"

	"github.com/pdiddy/entity-linker/pkg/types"
)

// reconcileResult classifies how a mention became (or failed to become) a span.
type reconcileResult string

const (
	resultLinked  reconcileResult = "linked"
	resultWidened reconcileResult = "widened"
	resultDropped reconcileResult = "dropped"
)

// Reconcile maps mentions onto the document's token grid and returns one
// span per surviving mention, in mention order. A mention whose range starts
// and ends on token boundaries becomes an exact span. Otherwise the span is
// widened to the whole tokens overlapping the range (e.g. "bbc.co.uk" inside
// the token "something@bbc.co.uk"). Mentions that overlap no token are
// dropped and logged at debug level.
func Reconcile(doc *types.Document, mentions []types.Mention, logger *zap.Logger) []types.Span {
	spans, _ := reconcile(doc, mentions, logger)
	return spans
}

func reconcile(doc *types.Document, mentions []types.Mention, logger *zap.Logger) ([]types.Span, map[reconcileResult]int) {
	if logger == nil {
		logger = zap.NewNop()
	}
	counts := make(map[reconcileResult]int)
	spans := make([]types.Span, 0, len(mentions))
	for _, m := range mentions {
		span, ok := doc.CharSpan(m.Start, m.End, types.LabelDBpedia, m.URI)
		if ok {
			counts[resultLinked]++
		} else {
			span, ok = widen(doc, m)
			if !ok {
				logger.Debug("dropping mention outside token grid",
					zap.Int("start", m.Start),
					zap.Int("end", m.End),
					zap.String("surface_form", m.SurfaceForm))
				counts[resultDropped]++
				continue
			}
			logger.Debug("widened mention to token boundaries",
				zap.Int("start", m.Start),
				zap.Int("end", m.End),
				zap.Int("span_start", span.StartChar),
				zap.Int("span_end", span.EndChar),
				zap.String("surface_form", m.SurfaceForm))
			counts[resultWidened]++
		}
		span.Raw = m.Raw
		spans = append(spans, span)
	}
	return spans, counts
}

// widen returns the span over the minimal run of whole tokens that overlap
// the mention's range [Start, End).
func widen(doc *types.Document, m types.Mention) (types.Span, bool) {
	if m.Start >= m.End {
		return types.Span{}, false
	}
	first, last := -1, -1
	for i, t := range doc.Tokens {
		if t.Start < m.End && t.End() > m.Start {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return types.Span{}, false
	}
	return doc.TokenSpan(first, last+1, types.LabelDBpedia, m.URI), true
}
