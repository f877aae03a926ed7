package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "entity-linker/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RateLimit caps outgoing requests per second. Zero disables the limit.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// RateBurst is the limiter burst size (default 1).
	RateBurst int `json:"rate_burst" yaml:"rate_burst" mapstructure:"rate_burst"`

	// MaxRetries is the number of retries on HTTP 429. Zero disables retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LinkMode selects the linking service process and the shape of its response.
type LinkMode string

const (
	ModeAnnotate   LinkMode = "annotate"
	ModeSpot       LinkMode = "spot"
	ModeCandidates LinkMode = "candidates"
)

// LinkerConfig holds settings for the entity linking stage. It is resolved
// once when the stage is built and never mutated afterwards.
type LinkerConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Language is the service language code (e.g. "en").
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// Endpoint overrides the language endpoint, e.g. "http://localhost:2222/rest".
	// When set, Language is not checked against the supported list.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`

	// BaseURL is the public service root used when Endpoint is empty.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Mode is the service process: annotate, spot, or candidates.
	Mode LinkMode `json:"mode" yaml:"mode" mapstructure:"mode"`

	// Optional service filters. Nil or empty values are not sent.
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty" mapstructure:"confidence"`
	Support    *int     `json:"support,omitempty" yaml:"support,omitempty" mapstructure:"support"`
	Types      string   `json:"types,omitempty" yaml:"types,omitempty" mapstructure:"types"`
	SPARQL     string   `json:"sparql,omitempty" yaml:"sparql,omitempty" mapstructure:"sparql"`
	Policy     string   `json:"policy,omitempty" yaml:"policy,omitempty" mapstructure:"policy"`

	// SpanGroup names the span group that always receives the linked spans.
	SpanGroup string `json:"span_group" yaml:"span_group" mapstructure:"span_group"`

	// OverwriteEnts replaces conflicting document entities with the linked
	// ones, moving the originals to the "ents_original" span group.
	OverwriteEnts bool `json:"overwrite_ents" yaml:"overwrite_ents" mapstructure:"overwrite_ents"`

	// RaiseHTTPErrors returns transport failures to the caller. When false a
	// failing document is left unchanged.
	RaiseHTTPErrors bool `json:"raise_http_errors" yaml:"raise_http_errors" mapstructure:"raise_http_errors"`

	// BatchSize is the number of documents sent concurrently by Pipe.
	BatchSize int `json:"batch_size" yaml:"batch_size" mapstructure:"batch_size"`

	// Debug enables debug-level diagnostics.
	Debug bool `json:"debug" yaml:"debug" mapstructure:"debug"`
}

// StoreConfig holds settings for the annotation store.
type StoreConfig struct {
	// Dir is the directory holding annotations.db and exports.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Linker LinkerConfig `json:"linker" yaml:"linker" mapstructure:"linker"`
	Store  StoreConfig  `json:"store" yaml:"store" mapstructure:"store"`
}
