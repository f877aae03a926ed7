// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spotlight

import (
	"context"
	"iter"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/entity-linker/pkg/types"
)

// fetchResult is the outcome of one document's service call.
type fetchResult struct {
	body []byte
	err  error
}

// Pipe annotates a stream of documents and yields them one-to-one in input
// order. Documents are taken in batches of batchSize (the linker's BatchSize
// when batchSize <= 0); within a batch the service calls run concurrently and
// each document is merged and yielded as soon as its own call completes and
// every earlier document has been yielded.
//
// When RaiseHTTPErrors is set, the first failing document yields
// (nil, err) and the sequence ends. Otherwise failing documents are yielded
// unchanged. Cancelling ctx ends the sequence with (nil, ctx error) either
// way. Each batch's calls are drained before Pipe moves on or returns.
func (l *Linker) Pipe(ctx context.Context, docs iter.Seq[*types.Document], batchSize int) iter.Seq2[*types.Document, error] {
	if batchSize <= 0 {
		batchSize = l.cfg.BatchSize
	}
	return func(yield func(*types.Document, error) bool) {
		batch := make([]*types.Document, 0, batchSize)
		for doc := range docs {
			batch = append(batch, doc)
			if len(batch) < batchSize {
				continue
			}
			if !l.runBatch(ctx, batch, yield) {
				return
			}
			batch = batch[:0]
		}
		if len(batch) > 0 {
			l.runBatch(ctx, batch, yield)
		}
	}
}

// PipeSlice is Pipe over a slice of documents.
func (l *Linker) PipeSlice(ctx context.Context, docs []*types.Document, batchSize int) iter.Seq2[*types.Document, error] {
	return l.Pipe(ctx, slices.Values(docs), batchSize)
}

// runBatch dispatches one call per document, then merges and yields the
// documents in submission order. It reports whether the caller should keep
// going.
func (l *Linker) runBatch(ctx context.Context, batch []*types.Document, yield func(*types.Document, error) bool) bool {
	if err := ctx.Err(); err != nil {
		yield(nil, err)
		return false
	}
	l.logger.Debug("dispatching batch", zap.Int("size", len(batch)))

	slots := make([]chan fetchResult, len(batch))
	var g errgroup.Group
	g.SetLimit(len(batch))
	for i, doc := range batch {
		slots[i] = make(chan fetchResult, 1)
		g.Go(func() error {
			body, err := l.fetch(ctx, doc)
			slots[i] <- fetchResult{body: body, err: err}
			return nil
		})
	}
	defer g.Wait()

	for i, doc := range batch {
		res := <-slots[i]
		if res.err == nil {
			res.err = l.apply(doc, res.body)
		}
		if res.err != nil {
			yield(nil, res.err)
			return false
		}
		if !yield(doc, nil) {
			return false
		}
	}
	return true
}
