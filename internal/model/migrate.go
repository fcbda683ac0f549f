package model

import "gorm.io/gorm"

// AutoMigrate creates or updates the sessions, processes and cache tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Session{}, &Process{}, &CacheEntry{})
}
