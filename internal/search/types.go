// Package search abstracts the web-search backends the WebSearch tool can
// query: Exa's public MCP endpoint (keyless), Serper, and Brave.
package search

import (
	"context"
	"time"
)

const defaultSearchTimeout = 30 * time.Second

// ProviderName identifies a search backend.
type ProviderName string

const (
	ProviderExa    ProviderName = "exa"
	ProviderSerper ProviderName = "serper"
	ProviderBrave  ProviderName = "brave"
)

// SearchResult is one hit, already trimmed for conversation use.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// SearchOptions tunes a single query.
type SearchOptions struct {
	NumResults     int
	AllowedDomains []string
	BlockedDomains []string
	Timeout        time.Duration
}

// DefaultOptions returns the options used when the caller specifies
// nothing.
func DefaultOptions() SearchOptions {
	return SearchOptions{
		NumResults: 10,
		Timeout:    defaultSearchTimeout,
	}
}

// truncateSnippet caps a snippet at maxLength characters.
func truncateSnippet(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}

// getTimeout resolves the effective request timeout.
func getTimeout(opts SearchOptions) time.Duration {
	if opts.Timeout <= 0 {
		return defaultSearchTimeout
	}
	return opts.Timeout
}

// Provider is one search backend.
type Provider interface {
	Name() ProviderName
	DisplayName() string

	// RequiresAPIKey and EnvVars describe the credential the provider
	// needs, for configuration UIs and availability checks.
	RequiresAPIKey() bool
	EnvVars() []string

	// IsAvailable reports whether the provider can serve queries right
	// now (its credential is present, if it needs one).
	IsAvailable() bool

	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
}

// ProviderMeta describes a provider without constructing it.
type ProviderMeta struct {
	Name           ProviderName
	DisplayName    string
	RequiresAPIKey bool
	EnvVars        []string
}

// AllProviders lists every known search backend.
func AllProviders() []ProviderMeta {
	return []ProviderMeta{
		{
			Name:        ProviderExa,
			DisplayName: "Exa AI",
			// Exa's public MCP endpoint serves without a key.
		},
		{
			Name:           ProviderSerper,
			DisplayName:    "Serper (Google)",
			RequiresAPIKey: true,
			EnvVars:        []string{"SERPER_API_KEY"},
		},
		{
			Name:           ProviderBrave,
			DisplayName:    "Brave Search",
			RequiresAPIKey: true,
			EnvVars:        []string{"BRAVE_API_KEY"},
		},
	}
}
