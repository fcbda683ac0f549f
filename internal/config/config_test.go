package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_SESSION_TIMEOUT", "")
	t.Setenv("CACHE_CLEANING_PROBABILITY", "")

	cfg := Load()

	assert.Equal(t, 30*time.Minute, cfg.Chat.SessionTimeout())
	assert.Equal(t, 2, cfg.Chat.RetryAfterSeconds)
	assert.Equal(t, 0.01, cfg.Chat.CacheCleaningProbability)
	assert.Equal(t, 24*time.Hour, cfg.Chat.RichContentTTL())
	assert.Equal(t, 30*time.Minute, cfg.Chat.ConversationMemoryTTL())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_SESSION_TIMEOUT", "60")
	t.Setenv("API_RETRY_AFTER", "5")
	t.Setenv("CACHE_CLEANING_PROBABILITY", "0.5")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg := Load()

	assert.Equal(t, time.Minute, cfg.Chat.SessionTimeout())
	assert.Equal(t, 5, cfg.Chat.RetryAfterSeconds)
	assert.Equal(t, 0.5, cfg.Chat.CacheCleaningProbability)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestGetEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "abc")
	t.Setenv("SOME_FLOAT", "x.y")

	assert.Equal(t, 7, getEnvAsInt("SOME_INT", 7))
	assert.Equal(t, 0.25, getEnvAsFloat("SOME_FLOAT", 0.25))
}
