package memory

import (
	"context"
	"testing"
	"time"

	"ai-chatbot-be/internal/constant"
	"ai-chatbot-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSessionRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	session := &entity.Session{Id: "s1", AgentId: "a1", CreatedAt: t0, LastActivityAt: t0}
	require.NoError(t, repo.Save(ctx, session))

	session.AgentId = "changed"
	got, err := repo.FindById(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AgentId)

	rating := 4
	got.Rating = &rating
	again, err := repo.FindById(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, again.Rating)

	missing, err := repo.FindById(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSessionRepository_ActivityNeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	require.NoError(t, repo.Save(ctx, &entity.Session{Id: "s1", CreatedAt: t0, LastActivityAt: t0}))
	require.NoError(t, repo.TouchActivity(ctx, "s1", t0.Add(time.Minute)))
	require.NoError(t, repo.TouchActivity(ctx, "s1", t0.Add(30*time.Second)))

	got, err := repo.FindById(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Minute), got.LastActivityAt)

	// A save built from a stale read keeps its other fields but not its older activity.
	rating := 5
	stale := &entity.Session{Id: "s1", CreatedAt: t0, LastActivityAt: t0, Rating: &rating, Status: constant.SessionStatusTerminated}
	require.NoError(t, repo.Save(ctx, stale))

	got, err = repo.FindById(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Minute), got.LastActivityAt)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 5, *got.Rating)

	assert.NoError(t, repo.TouchActivity(ctx, "unknown", t0))
}

func TestProcessRepository_OrderingAndIsolation(t *testing.T) {
	ctx := context.Background()
	repo := NewProcessRepository()

	later := &entity.Process{Id: entity.NewProcessId(t0.Add(time.Second)), SessionId: "s1", Status: constant.ProcessStatusProcessing}
	earlier := &entity.Process{Id: entity.NewProcessId(t0), SessionId: "s1", Status: constant.ProcessStatusDone}
	require.NoError(t, repo.Save(ctx, later))
	require.NoError(t, repo.Save(ctx, earlier))
	require.NoError(t, repo.Save(ctx, &entity.Process{Id: entity.NewProcessId(t0), SessionId: "s2"}))

	all, err := repo.FindAllBySessionId(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, earlier.Id, all[0].Id)
	assert.Equal(t, later.Id, all[1].Id)

	// Mutating the saved value must not leak into storage.
	later.Responses = append(later.Responses, entity.ProcessResponse{Text: "partial"})
	got, err := repo.FindById(ctx, "s1", later.Id)
	require.NoError(t, err)
	assert.Empty(t, got.Responses)

	require.NoError(t, repo.Delete(ctx, "s1", later.Id))
	got, err = repo.FindById(ctx, "s1", later.Id)
	require.NoError(t, err)
	assert.Nil(t, got)

	none, err := repo.FindAllBySessionId(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCacheRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCacheRepository()

	require.NoError(t, repo.Upsert(ctx, &entity.CacheEntry{Key: "live", Value: []byte("1"), ExpirationAt: t0.Add(time.Minute)}))
	require.NoError(t, repo.Upsert(ctx, &entity.CacheEntry{Key: "dead", Value: []byte("2"), ExpirationAt: t0.Add(-time.Minute)}))

	live, err := repo.FindLive(ctx, "live", t0)
	require.NoError(t, err)
	require.NotNil(t, live)
	assert.Equal(t, []byte("1"), live.Value)

	dead, err := repo.FindLive(ctx, "dead", t0)
	require.NoError(t, err)
	assert.Nil(t, dead)

	deleted, err := repo.DeleteExpired(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	live, err = repo.FindLive(ctx, "live", t0)
	require.NoError(t, err)
	assert.NotNil(t, live)
}

func TestCacheRepository_SweepMatchesReadFilterAtBoundary(t *testing.T) {
	ctx := context.Background()
	repo := NewCacheRepository()

	require.NoError(t, repo.Upsert(ctx, &entity.CacheEntry{Key: "edge", Value: []byte("x"), ExpirationAt: t0}))

	found, err := repo.FindLive(ctx, "edge", t0)
	require.NoError(t, err)
	assert.Nil(t, found)

	deleted, err := repo.DeleteExpired(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
