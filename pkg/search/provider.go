package search

import (
	"context"
	"errors"
)

var ErrEmptyQuery = errors.New("query is required")

// Result is one ranked web hit; Content is a short snippet.
type Result struct {
	Title   string `json:"title"`
	Url     string `json:"url"`
	Content string `json:"content"`
}

// Provider returns at most five results for a query.
type Provider interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

func truncate(results []Result, max int) []Result {
	if len(results) > max {
		return results[:max]
	}
	return results
}
