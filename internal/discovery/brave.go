package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Dkhotpockets/ollama-notebookllm/pkg/httpclient"
)

const braveSearchEndpoint = "https://api.search.brave.com/res/v1/web/search"

// BraveProvider queries the Brave Web Search API. It requires a subscription
// token and is the preferred provider when one is configured.
type BraveProvider struct {
	apiKey  string
	client  *httpclient.Client
	baseURL string
}

var _ Provider = (*BraveProvider)(nil)

// NewBraveProvider creates the provider with the given API key.
func NewBraveProvider(apiKey string) (*BraveProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("brave provider requires an api key")
	}
	client, err := httpclient.New(httpclient.Config{Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("create brave client: %w", err)
	}
	return &BraveProvider{
		apiKey:  apiKey,
		client:  client,
		baseURL: braveSearchEndpoint,
	}, nil
}

func (b *BraveProvider) Name() string { return "brave" }

// Search queries the API and normalizes the web results.
func (b *BraveProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	reqURL := fmt.Sprintf("%s?q=%s&count=%d", b.baseURL, url.QueryEscape(query), maxResults)
	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build brave request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", b.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave api status %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode brave response: %w", err)
	}

	results := make([]SearchResult, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		if len(results) >= maxResults {
			break
		}
		results = append(results, SearchResult{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}
	return results, nil
}
