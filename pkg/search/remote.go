package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"thrx-be/internal/constant"
)

// RemoteProvider calls a search endpoint speaking
// POST {query} -> {results:[...]} | {error}.
type RemoteProvider struct {
	Endpoint string
	Client   *http.Client
}

var _ Provider = &RemoteProvider{}

func NewRemoteProvider(endpoint string) *RemoteProvider {
	return &RemoteProvider{
		Endpoint: endpoint,
		Client: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResponse struct {
	Results []Result `json:"results"`
	Error   string   `json:"error,omitempty"`
}

func (p *RemoteProvider) Search(ctx context.Context, query string) ([]Result, error) {
	payload, err := json.Marshal(searchRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed searchResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
			return nil, fmt.Errorf("search error: status %d: %s", resp.StatusCode, parsed.Error)
		}
		return nil, fmt.Errorf("search error: status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return truncate(parsed.Results, constant.MaxRetrievalResults), nil
}
