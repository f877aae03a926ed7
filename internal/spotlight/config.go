// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package spotlight

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/pdiddy/entity-linker/pkg/types"
)

// DefaultBaseURL is the public DBpedia Spotlight service.
const DefaultBaseURL = "https://api.dbpedia-spotlight.org"

// DefaultSpanGroup is the span group that receives linked spans.
const DefaultSpanGroup = "dbpedia_spotlight"

const (
	defaultBatchSize = 128
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "entity-linker/0.1"
)

// SupportedLanguages lists the language codes served by the public endpoint.
var SupportedLanguages = []string{"en", "de", "es", "fr", "it", "nl", "pt", "ru"}

var (
	// ErrUnsupportedLanguage is returned when no endpoint override is set and
	// the language is not served by the public endpoint.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrUnsupportedMode is returned for a mode other than annotate, spot,
	// or candidates.
	ErrUnsupportedMode = errors.New("unsupported mode")
)

// DefaultConfig returns the stage defaults: English, annotate mode, span group
// "dbpedia_spotlight", overwriting entities and raising HTTP errors.
func DefaultConfig() types.LinkerConfig {
	return types.LinkerConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   defaultTimeout,
			UserAgent: defaultUserAgent,
		},
		Language:        "en",
		BaseURL:         DefaultBaseURL,
		Mode:            types.ModeAnnotate,
		SpanGroup:       DefaultSpanGroup,
		OverwriteEnts:   true,
		RaiseHTTPErrors: true,
		BatchSize:       defaultBatchSize,
	}
}

// Validate checks the settings that cannot be recovered from at run time.
func Validate(cfg types.LinkerConfig) error {
	if cfg.Endpoint == "" && !slices.Contains(SupportedLanguages, cfg.Language) {
		return fmt.Errorf("%w: %q, choose one of %v", ErrUnsupportedLanguage, cfg.Language, SupportedLanguages)
	}
	if _, ok := shapes[cfg.Mode]; !ok {
		return fmt.Errorf("%w: %q, choose one of annotate, spot, candidates", ErrUnsupportedMode, cfg.Mode)
	}
	return nil
}

// normalize fills empty optional fields with their defaults.
func normalize(cfg types.LinkerConfig) types.LinkerConfig {
	if cfg.Mode == "" {
		cfg.Mode = types.ModeAnnotate
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.SpanGroup == "" {
		cfg.SpanGroup = DefaultSpanGroup
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return cfg
}
