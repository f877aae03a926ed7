// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spotlight

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/entity-linker/internal/httputil"
	"github.com/pdiddy/entity-linker/internal/tokenize"
	"github.com/pdiddy/entity-linker/pkg/types"
)

// echoResponder links the first token of every text to a resource named
// after it, sleeping a few milliseconds chosen from the text so responses
// complete out of order.
func echoResponder(inFlight, peak *atomic.Int32) func(url.Values) (int, string) {
	return func(form url.Values) (int, string) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}

		text := form.Get("text")
		h := fnv.New32a()
		h.Write([]byte(text))
		time.Sleep(time.Duration(h.Sum32()%15) * time.Millisecond)

		word := strings.Fields(text)[0]
		if strings.HasPrefix(text, "fail") {
			return http.StatusInternalServerError, ""
		}
		return http.StatusOK, fmt.Sprintf(`{"Resources": [{"@URI": "http://dbpedia.org/resource/%s", "@surfaceForm": %q, "@offset": "0"}]}`, word, word)
	}
}

func pipeDocs(n int) []*types.Document {
	docs := make([]*types.Document, n)
	for i := range docs {
		docs[i] = tokenize.Document(fmt.Sprintf("Doc%d is a document.", i))
		docs[i].ID = fmt.Sprintf("d%d", i)
	}
	return docs
}

func TestPipePreservesOrder(t *testing.T) {
	tests := []struct {
		docs, batch int
	}{
		{0, 4},
		{1, 4},
		{7, 1},
		{7, 3},
		{12, 4},
		{10, 32},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d,b=%d", tt.docs, tt.batch), func(t *testing.T) {
			var inFlight, peak atomic.Int32
			svc := newFakeService(t, echoResponder(&inFlight, &peak))
			l := newTestLinker(t, testConfig(svc.URL), WithHTTPClient(svc.Client()))
			docs := pipeDocs(tt.docs)

			var got []*types.Document
			for doc, err := range l.PipeSlice(context.Background(), docs, tt.batch) {
				require.NoError(t, err)
				got = append(got, doc)
			}

			require.Len(t, got, tt.docs)
			for i, doc := range got {
				assert.Same(t, docs[i], doc, "position %d", i)
				require.Len(t, doc.Ents, 1)
				assert.Equal(t, fmt.Sprintf("http://dbpedia.org/resource/Doc%d", i), doc.Ents[0].KBID)
			}
			assert.LessOrEqual(t, int(peak.Load()), tt.batch)
			assert.Equal(t, tt.docs, svc.requests())
		})
	}
}

func TestPipeDefaultBatchSize(t *testing.T) {
	var inFlight, peak atomic.Int32
	svc := newFakeService(t, echoResponder(&inFlight, &peak))
	cfg := testConfig(svc.URL)
	cfg.BatchSize = 2
	l := newTestLinker(t, cfg, WithHTTPClient(svc.Client()))

	n := 0
	for _, err := range l.PipeSlice(context.Background(), pipeDocs(5), 0) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 5, n)
	assert.LessOrEqual(t, int(peak.Load()), 2)
}

func TestPipeStopsOnRaisedError(t *testing.T) {
	var inFlight, peak atomic.Int32
	svc := newFakeService(t, echoResponder(&inFlight, &peak))
	l := newTestLinker(t, testConfig(svc.URL), WithHTTPClient(svc.Client()))

	docs := pipeDocs(6)
	docs[3] = tokenize.Document("fail here")

	var ok int
	var errs []error
	for doc, err := range l.PipeSlice(context.Background(), docs, 2) {
		if err != nil {
			assert.Nil(t, doc)
			errs = append(errs, err)
			continue
		}
		ok++
	}

	assert.Equal(t, 3, ok)
	require.Len(t, errs, 1)
	var se *httputil.StatusError
	assert.ErrorAs(t, errs[0], &se)
	// The batch holding the failure is drained; later batches are never sent.
	assert.Equal(t, 4, svc.requests())
}

func TestPipeToleratesErrors(t *testing.T) {
	var inFlight, peak atomic.Int32
	svc := newFakeService(t, echoResponder(&inFlight, &peak))
	cfg := testConfig(svc.URL)
	cfg.RaiseHTTPErrors = false
	l := newTestLinker(t, cfg, WithHTTPClient(svc.Client()))

	docs := pipeDocs(5)
	docs[1] = tokenize.Document("fail here")

	var got []*types.Document
	for doc, err := range l.PipeSlice(context.Background(), docs, 3) {
		require.NoError(t, err)
		got = append(got, doc)
	}

	require.Len(t, got, 5)
	assert.Same(t, docs[1], got[1])
	assert.Empty(t, got[1].Ents)
	assert.Nil(t, got[1].RawResult)
	for _, i := range []int{0, 2, 3, 4} {
		assert.Len(t, got[i].Ents, 1, "doc %d", i)
	}
}

func TestPipeStopsOnCancel(t *testing.T) {
	for _, raise := range []bool{true, false} {
		t.Run(fmt.Sprintf("raise=%t", raise), func(t *testing.T) {
			var inFlight, peak atomic.Int32
			svc := newFakeService(t, echoResponder(&inFlight, &peak))
			cfg := testConfig(svc.URL)
			cfg.RaiseHTTPErrors = raise
			l := newTestLinker(t, cfg, WithHTTPClient(svc.Client()))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var yielded int
			var errs []error
			for doc, err := range l.PipeSlice(ctx, pipeDocs(6), 2) {
				if err != nil {
					assert.Nil(t, doc)
					errs = append(errs, err)
					continue
				}
				yielded++
			}

			assert.Zero(t, yielded)
			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], context.Canceled)
			assert.Equal(t, 0, svc.requests())
		})
	}
}

func TestPipeStopsWhenCancelledMidStream(t *testing.T) {
	var inFlight, peak atomic.Int32
	svc := newFakeService(t, echoResponder(&inFlight, &peak))
	cfg := testConfig(svc.URL)
	cfg.RaiseHTTPErrors = false
	l := newTestLinker(t, cfg, WithHTTPClient(svc.Client()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var yielded int
	var last error
	for doc, err := range l.PipeSlice(ctx, pipeDocs(6), 2) {
		if err != nil {
			last = err
			continue
		}
		require.NotNil(t, doc)
		yielded++
		if yielded == 2 {
			cancel()
		}
	}

	assert.Equal(t, 2, yielded)
	assert.ErrorIs(t, last, context.Canceled)
	assert.Equal(t, 2, svc.requests())
}

func TestPipeEarlyBreak(t *testing.T) {
	var inFlight, peak atomic.Int32
	svc := newFakeService(t, echoResponder(&inFlight, &peak))
	l := newTestLinker(t, testConfig(svc.URL), WithHTTPClient(svc.Client()))

	var seen []string
	for doc, err := range l.PipeSlice(context.Background(), pipeDocs(10), 4) {
		require.NoError(t, err)
		seen = append(seen, doc.ID)
		if len(seen) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"d0", "d1"}, seen)
	// Only the first batch was dispatched, and it finished before Pipe returned.
	assert.Equal(t, 4, svc.requests())
	assert.Equal(t, int32(0), inFlight.Load())
}

func TestPipeStream(t *testing.T) {
	var inFlight, peak atomic.Int32
	svc := newFakeService(t, echoResponder(&inFlight, &peak))
	l := newTestLinker(t, testConfig(svc.URL), WithHTTPClient(svc.Client()))

	docs := pipeDocs(5)
	var ids []string
	for doc, err := range l.Pipe(context.Background(), slices.Values(docs), 2) {
		require.NoError(t, err)
		ids = append(ids, doc.ID)
	}
	assert.Equal(t, []string{"d0", "d1", "d2", "d3", "d4"}, ids)
}
