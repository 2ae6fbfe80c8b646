package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-attribution/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const clickCacheKeyPrefix = "go-attribution::click_event::v1"

// CachedClickStore fronts click lookups with a cache. Click events are
// immutable once written, so cached entries never go stale; the only write
// path is the synthetic click from the promotion-code fallback, which seeds
// the cache on its way through.
type CachedClickStore struct {
	base  core.ClickStore
	cache repositorycache.CacheService
}

func NewCachedClickStore(base core.ClickStore, cacheService repositorycache.CacheService) (*CachedClickStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base click store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: click cache service is required")
	}
	return &CachedClickStore{base: base, cache: cacheService}, nil
}

// ClickCacheKey returns the deterministic cache key for a click lookup:
// go-attribution::click_event::v1::<click_id> with the id URL-path escaped.
func ClickCacheKey(clickID string) (string, error) {
	clickID = strings.TrimSpace(clickID)
	if clickID == "" {
		return "", fmt.Errorf("sqlstore: click id is required")
	}
	return clickCacheKeyPrefix + "::" + url.PathEscape(clickID), nil
}

func (s *CachedClickStore) Get(ctx context.Context, clickID string) (core.ClickEvent, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.ClickEvent{}, fmt.Errorf("sqlstore: cached click store is not configured")
	}
	cacheKey, err := ClickCacheKey(clickID)
	if err != nil {
		return core.ClickEvent{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.ClickEvent, error) {
		return s.base.Get(ctx, strings.TrimSpace(clickID))
	})
}

func (s *CachedClickStore) Append(ctx context.Context, click core.ClickEvent) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached click store is not configured")
	}
	if err := s.base.Append(ctx, click); err != nil {
		return err
	}
	cacheKey, err := ClickCacheKey(click.ID)
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return err
	}
	return nil
}

var _ core.ClickStore = (*CachedClickStore)(nil)
