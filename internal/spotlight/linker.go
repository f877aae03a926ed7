// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package spotlight links entities in tokenized documents through a DBpedia
// Spotlight web service. It sends each document's text to the service, parses
// the mentions in the response, aligns them with the document's tokens, and
// merges the resulting spans into the document's entities.
//
// The linker does no ranking or disambiguation of its own: the service
// decides what is an entity, the linker only reconciles offsets and spans.
package spotlight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/entity-linker/internal/httputil"
	"github.com/pdiddy/entity-linker/pkg/types"
)

// Stage is a document annotation stage that can run on one document or a
// stream of documents.
type Stage interface {
	Annotate(ctx context.Context, doc *types.Document) (*types.Document, error)
	Pipe(ctx context.Context, docs iter.Seq[*types.Document], batchSize int) iter.Seq2[*types.Document, error]
}

var _ Stage = (*Linker)(nil)

// Linker annotates documents with entities found by the linking service.
// A Linker is safe for concurrent use.
type Linker struct {
	cfg      types.LinkerConfig
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
	metrics  *Metrics
}

// Option customizes a Linker.
type Option func(*Linker)

// WithHTTPClient sets the HTTP client used for service requests.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Linker) { l.client = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Linker) { l.logger = logger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) Option {
	return func(l *Linker) { l.metrics = m }
}

// New validates cfg and returns a Linker. An unsupported language (without
// an endpoint override) or an unsupported mode is an error.
func New(cfg types.LinkerConfig, opts ...Option) (*Linker, error) {
	cfg = normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	l := &Linker{
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	if cfg.Endpoint != "" {
		l.endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	} else {
		l.endpoint = strings.TrimSuffix(cfg.BaseURL, "/") + "/" + cfg.Language
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: cfg.Timeout}
	}

	l.logger.Debug("linker configured",
		zap.String("endpoint", l.endpoint),
		zap.String("mode", string(cfg.Mode)),
		zap.String("span_group", cfg.SpanGroup),
		zap.Bool("overwrite_ents", cfg.OverwriteEnts),
		zap.Bool("raise_http_errors", cfg.RaiseHTTPErrors))
	return l, nil
}

// Config returns the resolved configuration.
func (l *Linker) Config() types.LinkerConfig { return l.cfg }

// Endpoint returns the service URL requests are posted to, without the mode.
func (l *Linker) Endpoint() string { return l.endpoint }

// Annotate links entities in a single document and returns it. On a
// transport failure the error is returned when RaiseHTTPErrors is set;
// otherwise the document is returned unchanged. Cancellation of ctx is
// always returned.
func (l *Linker) Annotate(ctx context.Context, doc *types.Document) (*types.Document, error) {
	body, err := l.fetch(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := l.apply(doc, body); err != nil {
		return nil, err
	}
	return doc, nil
}

// fetch sends the document text to the service and returns the response
// body. Failures are returned or swallowed (nil body) per RaiseHTTPErrors;
// a cancelled or expired ctx is always returned.
func (l *Linker) fetch(ctx context.Context, doc *types.Document) ([]byte, error) {
	body, err := l.request(ctx, doc.Text)
	if err == nil {
		return body, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		l.logger.Debug("linking cancelled", zap.String("doc_id", doc.ID), zap.Error(err))
		return nil, fmt.Errorf("linking document %s: %w", doc.ID, ctxErr)
	}

	var se *httputil.StatusError
	if errors.As(err, &se) {
		l.logger.Warn("bad response from linking service, document not updated",
			zap.String("endpoint", l.endpoint),
			zap.Int("status", se.StatusCode),
			zap.String("doc_id", doc.ID))
	} else {
		l.logger.Error("linking service unreachable, document not updated",
			zap.String("endpoint", l.endpoint),
			zap.String("doc_id", doc.ID),
			zap.Error(err))
	}
	if l.cfg.RaiseHTTPErrors {
		return nil, err
	}
	return nil, nil
}

// request performs one POST to {endpoint}/{mode}.
func (l *Linker) request(ctx context.Context, text string) ([]byte, error) {
	if l.limiter != nil {
		waitStart := time.Now()
		if err := l.limiter.Wait(ctx); err != nil {
			l.metrics.observeRequest("transport_error", time.Since(waitStart))
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	reqURL := l.endpoint + "/" + string(l.cfg.Mode)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(l.form(text).Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", l.cfg.UserAgent)

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, l.client, req, l.cfg.MaxRetries)
	if err != nil {
		l.metrics.observeRequest("transport_error", time.Since(start))
		return nil, fmt.Errorf("linking service request: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		io.Copy(io.Discard, resp.Body)
		l.metrics.observeRequest("http_error", time.Since(start))
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		l.metrics.observeRequest("transport_error", time.Since(start))
		return nil, fmt.Errorf("reading linking service response: %w", err)
	}
	l.metrics.observeRequest("ok", time.Since(start))
	return body, nil
}

// form builds the request fields: the text plus any configured filters.
func (l *Linker) form(text string) url.Values {
	v := url.Values{"text": {text}}
	if l.cfg.Confidence != nil {
		v.Set("confidence", strconv.FormatFloat(*l.cfg.Confidence, 'f', -1, 64))
	}
	if l.cfg.Support != nil {
		v.Set("support", strconv.Itoa(*l.cfg.Support))
	}
	if l.cfg.Types != "" {
		v.Set("types", l.cfg.Types)
	}
	if l.cfg.SPARQL != "" {
		v.Set("sparql", l.cfg.SPARQL)
	}
	if l.cfg.Policy != "" {
		v.Set("policy", l.cfg.Policy)
	}
	return v
}

// apply parses a response body and merges its mentions into doc. An empty
// body means no result and leaves the document untouched.
func (l *Linker) apply(doc *types.Document, body []byte) error {
	if len(body) == 0 {
		l.logger.Debug("no data returned from linking service", zap.String("doc_id", doc.ID))
		return nil
	}
	mentions, err := ParseResponse(body, l.cfg.Mode)
	if err != nil {
		return fmt.Errorf("document %q: %w", doc.ID, err)
	}
	spans, counts := reconcile(doc, mentions, l.logger)
	l.metrics.observeMentions(counts)

	path := Merge(doc, spans, body, l.cfg)
	l.metrics.observeMerge(path)
	l.logger.Debug("merged linked spans",
		zap.String("doc_id", doc.ID),
		zap.Int("mentions", len(mentions)),
		zap.Int("spans", len(spans)),
		zap.String("path", string(path)))
	return nil
}
