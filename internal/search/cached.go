package search

import (
	"context"
	"strings"
	"time"

	"github.com/d00mkeeps/ibhackathon/internal/cache"
)

// DefaultCacheTTL bounds how stale a cached snippet or quote may be.
const DefaultCacheTTL = 5 * time.Minute

const cacheSize = 256

// CachedSearcher remembers successful searches per query. Failures are not
// cached.
type CachedSearcher struct {
	inner Searcher
	cache *cache.TTL[string]
}

func NewCachedSearcher(inner Searcher, ttl time.Duration) Searcher {
	if _, off := inner.(Disabled); off {
		return inner
	}
	return &CachedSearcher{inner: inner, cache: cache.NewTTL[string](ttl, cacheSize)}
}

func (s *CachedSearcher) Search(ctx context.Context, query string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}
	v, err := s.inner.Search(ctx, query)
	if err != nil {
		return "", err
	}
	s.cache.Set(key, v)
	return v, nil
}

// CachedQuoter remembers quote lines per symbol.
type CachedQuoter struct {
	inner Quoter
	cache *cache.TTL[string]
}

func NewCachedQuoter(inner Quoter, ttl time.Duration) *CachedQuoter {
	return &CachedQuoter{inner: inner, cache: cache.NewTTL[string](ttl, cacheSize)}
}

func (q *CachedQuoter) Quote(ctx context.Context, symbol string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if v, ok := q.cache.Get(key); ok {
		return v, nil
	}
	v, err := q.inner.Quote(ctx, symbol)
	if err != nil {
		return "", err
	}
	q.cache.Set(key, v)
	return v, nil
}
