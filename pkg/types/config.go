// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSearchAPIBaseURL is the Semantic Scholar API root used when no
// override is configured.
const DefaultSearchAPIBaseURL = "https://api.semanticscholar.org"

// Settings holds the configuration for one pipeline invocation. The record is
// built once from the environment and passed read-only to every stage.
type Settings struct {
	// ReasonerModel is the generative model identifier (e.g. "gpt-4o-mini",
	// "claude-sonnet-4-5-20250929", "gemini-2.0-flash").
	ReasonerModel string `json:"reasoner_model" yaml:"reasoner_model"`

	// Verbose enables stage progress output.
	Verbose bool `json:"verbose" yaml:"verbose"`

	// DefaultDomain is the research domain used when the caller supplies none.
	DefaultDomain string `json:"default_domain" yaml:"default_domain"`

	// DefaultObjective is the brainstorming objective used when the caller
	// supplies none.
	DefaultObjective string `json:"default_objective" yaml:"default_objective"`

	// SearchAPIKey is an optional paper-search API key for higher rate limits.
	SearchAPIKey string `json:"search_api_key,omitempty" yaml:"search_api_key,omitempty"`

	// SearchAPIBaseURL is the paper-search API root.
	SearchAPIBaseURL string `json:"search_api_base_url" yaml:"search_api_base_url"`

	// SearchTimeout is the per-request timeout for paper-search calls.
	SearchTimeout time.Duration `json:"search_timeout" yaml:"search_timeout"`
}

// SettingsFromEnv builds a Settings record from environment variables.
// REASONER_MODEL_NAME is read first, then the legacy aliases SUMMA_MODEL and
// MODEL, falling back to "gpt-4o-mini".
func SettingsFromEnv() Settings {
	model := firstNonEmpty(
		os.Getenv("REASONER_MODEL_NAME"),
		os.Getenv("SUMMA_MODEL"),
		os.Getenv("MODEL"),
		"gpt-4o-mini",
	)

	timeout := 20 * time.Second
	if raw := os.Getenv("SEARCH_API_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil && secs > 0 {
			timeout = time.Duration(secs * float64(time.Second))
		}
	}

	return Settings{
		ReasonerModel:    model,
		Verbose:          envBool(os.Getenv("VERBOSE")),
		DefaultDomain:    envDefault("DEFAULT_DOMAIN", "general science"),
		DefaultObjective: envDefault("DEFAULT_OBJECTIVE", "Brainstorm original, testable, high-leverage ideas."),
		SearchAPIKey:     os.Getenv("SEARCH_API_KEY"),
		SearchAPIBaseURL: envDefault("SEARCH_API_BASE_URL", DefaultSearchAPIBaseURL),
		SearchTimeout:    timeout,
	}
}

// envBool interprets boolean-ish environment values ("1", "true", "yes", "on").
func envBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
