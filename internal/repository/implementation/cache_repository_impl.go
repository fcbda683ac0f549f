package implementation

import (
	"context"
	"errors"
	"time"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/mapper"
	"ai-chatbot-be/internal/model"
	"ai-chatbot-be/internal/repository/contract"
	"ai-chatbot-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CacheRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewCacheRepository(db *gorm.DB) contract.CacheRepository {
	return &CacheRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *CacheRepositoryImpl) FindLive(ctx context.Context, key string, now time.Time) (*entity.CacheEntry, error) {
	var m model.CacheEntry
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByCacheKey{Key: key},
		specification.LiveAt{At: now},
	)
	if err := query.Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.CacheEntryToEntity(&m), nil
}

func (r *CacheRepositoryImpl) Upsert(ctx context.Context, entry *entity.CacheEntry) error {
	m := r.mapper.CacheEntryToModel(entry)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at", "expiration_at"}),
		}).
		Create(m).Error
}

func (r *CacheRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := applySpecifications(r.db.WithContext(ctx), specification.ExpiredAt{At: now})
	result := query.Delete(&model.CacheEntry{})
	return result.RowsAffected, result.Error
}
