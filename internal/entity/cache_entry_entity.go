package entity

import "time"

type CacheEntry struct {
	Key          string
	Value        []byte
	UpdatedAt    time.Time
	ExpirationAt time.Time
}

// IsExpired reports whether the entry is dead at now. An entry expiring
// exactly at now is already dead.
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return !e.ExpirationAt.After(now)
}
