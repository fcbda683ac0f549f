package memory

import (
	"context"
	"time"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// CacheRepository relies on the entries' own ExpirationAt rather than
// go-cache's expiry, so callers control the clock and the sweep.
type CacheRepository struct {
	cache *cache.Cache
}

func NewCacheRepository() *CacheRepository {
	return &CacheRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

var _ contract.CacheRepository = (*CacheRepository)(nil)

func (r *CacheRepository) FindLive(ctx context.Context, key string, now time.Time) (*entity.CacheEntry, error) {
	x, found := r.cache.Get(key)
	if !found {
		return nil, nil
	}
	e := x.(*entity.CacheEntry)
	if e.IsExpired(now) {
		return nil, nil
	}
	c := *e
	c.Value = append([]byte(nil), e.Value...)
	return &c, nil
}

func (r *CacheRepository) Upsert(ctx context.Context, entry *entity.CacheEntry) error {
	c := *entry
	c.Value = append([]byte(nil), entry.Value...)
	r.cache.Set(entry.Key, &c, cache.NoExpiration)
	return nil
}

func (r *CacheRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	for key, item := range r.cache.Items() {
		if item.Object.(*entity.CacheEntry).IsExpired(now) {
			r.cache.Delete(key)
			deleted++
		}
	}
	return deleted, nil
}
