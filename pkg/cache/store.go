package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/contract"
)

const (
	// DefaultCleaningProbability is the chance that a single Get or Save
	// first removes every expired entry.
	DefaultCleaningProbability = 0.01

	DefaultTTL = 24 * time.Hour
)

// Store is a key/value cache with per-entry TTL. Expired entries are never
// returned; physical removal happens lazily, at random, on Get and Save.
type Store struct {
	repo        contract.CacheRepository
	log         logger.ILogger
	probability float64
	now         func() time.Time
	random      func() float64
}

type Option func(*Store)

func WithCleaningProbability(p float64) Option {
	return func(s *Store) {
		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		s.probability = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithRandom replaces the source used to roll for cleaning. It must return
// values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(s *Store) {
		s.random = random
	}
}

func NewStore(repo contract.CacheRepository, log logger.ILogger, opts ...Option) *Store {
	s := &Store{
		repo:        repo,
		log:         log,
		probability: DefaultCleaningProbability,
		now:         time.Now,
		random:      rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value stored under key, or false when the key is missing
// or its entry has expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.maybeClean(ctx)

	entry, err := s.repo.FindLive(ctx, key, s.now())
	if err != nil {
		return nil, false, fmt.Errorf("find cache entry %q: %w", key, err)
	}
	if entry == nil {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Save upserts value under key, resetting its expiration to now + ttl.
// A non-positive ttl falls back to DefaultTTL.
func (s *Store) Save(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.maybeClean(ctx)

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	entry := &entity.CacheEntry{
		Key:          key,
		Value:        value,
		UpdatedAt:    now,
		ExpirationAt: now.Add(ttl),
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("save cache entry %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cache entry %q: %w", key, err)
	}
	return true, nil
}

func (s *Store) SaveJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}
	return s.Save(ctx, key, raw, ttl)
}

// Sweep removes every entry that is no longer live at now and returns how many
// were deleted.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func (s *Store) maybeClean(ctx context.Context) {
	if s.probability <= 0 || s.random() >= s.probability {
		return
	}
	deleted, err := s.Sweep(ctx)
	if err != nil {
		// Cleanup is best-effort; the read-time filter keeps results correct.
		s.log.Warn("CACHE", "Failed to clean expired entries", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if deleted > 0 {
		s.log.Debug("CACHE", "Cleaned expired entries", map[string]interface{}{
			"deleted": deleted,
		})
	}
}
