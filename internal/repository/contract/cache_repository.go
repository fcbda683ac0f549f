package contract

import (
	"context"
	"time"

	"ai-chatbot-be/internal/entity"
)

// CacheRepository is the raw storage behind pkg/cache. It holds no eviction
// policy of its own.
type CacheRepository interface {
	// FindLive returns the entry for key only if it expires after now.
	FindLive(ctx context.Context, key string, now time.Time) (*entity.CacheEntry, error)
	Upsert(ctx context.Context, entry *entity.CacheEntry) error
	// DeleteExpired removes every entry FindLive would no longer return at now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
