package model

import "time"

type CacheEntry struct {
	Key          string    `gorm:"column:cache_key;type:varchar(512);primaryKey"`
	Value        []byte
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false;not null"`
	ExpirationAt time.Time `gorm:"not null;index"`
}

func (CacheEntry) TableName() string {
	return "cache"
}
