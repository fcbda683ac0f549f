package specification

import (
	"time"

	"gorm.io/gorm"
)

type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByCacheKey matches a single cache row.
type ByCacheKey struct {
	Key string
}

func (s ByCacheKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("cache_key = ?", s.Key)
}

// LiveAt keeps cache rows that expire strictly after At.
type LiveAt struct {
	At time.Time
}

func (s LiveAt) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("expiration_at > ?", s.At.UTC())
}

// ExpiredAt keeps cache rows that are dead at At, including those
// expiring exactly at At.
type ExpiredAt struct {
	At time.Time
}

func (s ExpiredAt) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("expiration_at <= ?", s.At.UTC())
}
