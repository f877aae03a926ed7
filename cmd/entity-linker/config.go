// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/entity-linker/internal/spotlight"
	"github.com/pdiddy/entity-linker/pkg/types"
)

// linkerFlagKeys maps annotate flags to their config keys.
var linkerFlagKeys = map[string]string{
	"language":          "linker.language",
	"endpoint":          "linker.endpoint",
	"base-url":          "linker.base_url",
	"mode":              "linker.mode",
	"types":             "linker.types",
	"sparql":            "linker.sparql",
	"policy":            "linker.policy",
	"span-group":        "linker.span_group",
	"overwrite-ents":    "linker.overwrite_ents",
	"raise-http-errors": "linker.raise_http_errors",
	"batch-size":        "linker.batch_size",
	"timeout":           "linker.timeout",
	"user-agent":        "linker.user_agent",
	"rate-limit":        "linker.rate_limit",
	"rate-burst":        "linker.rate_burst",
	"max-retries":       "linker.max_retries",
}

// addLinkerFlags registers the linker settings on fs with the stage defaults.
func addLinkerFlags(fs *pflag.FlagSet) {
	def := spotlight.DefaultConfig()

	fs.String("language", def.Language, fmt.Sprintf("service language, one of %v", spotlight.SupportedLanguages))
	fs.String("endpoint", "", "service endpoint override, e.g. http://localhost:2222/rest (skips the language check)")
	fs.String("base-url", def.BaseURL, "public service root used when no endpoint is set")
	fs.String("mode", string(def.Mode), "service process: annotate, spot, or candidates")
	fs.Float64("confidence", 0, "minimum disambiguation confidence (not sent unless set)")
	fs.Int("support", 0, "minimum resource support (not sent unless set)")
	fs.String("types", "", "restrict to DBpedia types, e.g. DBpedia:Company,Schema:Place")
	fs.String("sparql", "", "SPARQL query restricting candidate resources")
	fs.String("policy", "", "type filter policy: whitelist or blacklist")
	fs.String("span-group", def.SpanGroup, "span group that receives the linked spans")
	fs.Bool("overwrite-ents", def.OverwriteEnts, "replace conflicting entities, keeping the originals in ents_original")
	fs.Bool("raise-http-errors", def.RaiseHTTPErrors, "fail on service errors instead of leaving documents unchanged")
	fs.Int("batch-size", def.BatchSize, "documents sent to the service concurrently")
	fs.Duration("timeout", def.Timeout, "HTTP request timeout")
	fs.String("user-agent", def.UserAgent, "User-Agent header for service requests")
	fs.Float64("rate-limit", 0, "maximum requests per second (0 = unlimited)")
	fs.Int("rate-burst", 1, "rate limiter burst size")
	fs.Int("max-retries", 0, "retries on HTTP 429 with exponential backoff")
}

// bindLinkerFlags binds the annotate flags to their config keys.
func bindLinkerFlags(fs *pflag.FlagSet) {
	for name, key := range linkerFlagKeys {
		viper.BindPFlag(key, fs.Lookup(name))
	}
}

// loadConfig resolves the pipeline configuration from the config file,
// environment, and flags, in increasing order of precedence. confidence and
// support stay unset unless given explicitly.
func loadConfig(cmd *cobra.Command) (types.PipelineConfig, error) {
	cfg := types.PipelineConfig{Linker: spotlight.DefaultConfig()}
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	if f := cmd.Flags().Lookup("confidence"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetFloat64("confidence")
		cfg.Linker.Confidence = &v
	}
	if f := cmd.Flags().Lookup("support"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt("support")
		cfg.Linker.Support = &v
	}
	return cfg, nil
}
