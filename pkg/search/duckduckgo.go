package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"thrx-be/internal/constant"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	DuckDuckGoHTMLURL = "https://html.duckduckgo.com/html/"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// DuckDuckGoProvider scrapes the HTML-only results page. Requests go
// through a limiter so bursts of turns do not get the host blocked.
type DuckDuckGoProvider struct {
	BaseURL string
	Client  *http.Client
	limiter *rate.Limiter
}

var _ Provider = &DuckDuckGoProvider{}

// NewDuckDuckGoProvider allows perSecond requests with a burst of one.
func NewDuckDuckGoProvider(baseURL string, perSecond float64) *DuckDuckGoProvider {
	if baseURL == "" {
		baseURL = DuckDuckGoHTMLURL
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &DuckDuckGoProvider{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (p *DuckDuckGoProvider) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	searchURL := p.BaseURL + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch search results: %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}
	return parseResults(doc), nil
}

// parseResults reads the first five result blocks; blocks missing a title,
// link or snippet are skipped but still count toward the five.
func parseResults(doc *goquery.Document) []Result {
	results := []Result{}
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= constant.MaxRetrievalResults {
			return false
		}
		title := strings.TrimSpace(s.Find(".result__title").Text())
		href, _ := s.Find(".result__url").Attr("href")
		href = strings.TrimSpace(href)
		snippet := strings.TrimSpace(s.Find(".result__snippet").Text())

		if title != "" && href != "" && snippet != "" {
			results = append(results, Result{Title: title, Url: href, Content: snippet})
		}
		return true
	})
	return results
}
