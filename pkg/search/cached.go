package search

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedProvider memoises successful searches per normalised query.
// Errors and empty result sets are not cached.
type CachedProvider struct {
	next  Provider
	cache *cache.Cache
}

var _ Provider = &CachedProvider{}

func NewCachedProvider(next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (p *CachedProvider) Search(ctx context.Context, query string) ([]Result, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if x, found := p.cache.Get(key); found {
		return x.([]Result), nil
	}

	results, err := p.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		p.cache.Set(key, results, cache.DefaultExpiration)
	}
	return results, nil
}
