package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
)

const (
	braveEndpoint = "https://api.search.brave.com/res/v1/web/search"
	braveEnvKey   = "BRAVE_API_KEY"
)

// BraveProvider queries the Brave Search API.
type BraveProvider struct {
	apiKey string
}

// NewBraveProvider reads the subscription token from the environment; the
// provider reports unavailable when it's absent.
func NewBraveProvider() *BraveProvider {
	return &BraveProvider{apiKey: os.Getenv(braveEnvKey)}
}

func (p *BraveProvider) Name() ProviderName  { return ProviderBrave }
func (p *BraveProvider) DisplayName() string { return "Brave Search" }
func (p *BraveProvider) RequiresAPIKey() bool { return true }
func (p *BraveProvider) EnvVars() []string    { return []string{braveEnvKey} }
func (p *BraveProvider) IsAvailable() bool    { return p.apiKey != "" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Search issues one GET and filters the web results. Domain filters apply
// client-side so all providers behave identically.
func (p *BraveProvider) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if !p.IsAvailable() {
		return nil, fmt.Errorf("%s environment variable is not set", braveEnvKey)
	}

	numResults := opts.NumResults
	if numResults <= 0 {
		numResults = 10
	}

	u, err := url.Parse(braveEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("count", strconv.Itoa(numResults))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	client := &http.Client{Timeout: getTimeout(opts)}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var braveResp braveResponse
	if err := json.Unmarshal(respBody, &braveResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]SearchResult, 0, len(braveResp.Web.Results))
	for _, r := range braveResp.Web.Results {
		if !matchesDomainFilter(r.URL, opts.AllowedDomains, opts.BlockedDomains) {
			continue
		}
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: truncateSnippet(r.Description, 200),
		})
	}
	return results, nil
}
