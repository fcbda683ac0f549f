package claim

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClaimer(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryClaimer(func() time.Time { return now })

	ok, err := c.TryClaim(ctx, "s1", "p1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.TryClaim(ctx, "s1", "p2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "held claim must reject another owner")

	ok, err = c.TryClaim(ctx, "s2", "p2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "claims are per session")

	require.NoError(t, c.Release(ctx, "s1", "p2"))
	ok, err = c.TryClaim(ctx, "s1", "p3", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "release by a non-owner is ignored")

	require.NoError(t, c.Release(ctx, "s1", "p1"))
	ok, err = c.TryClaim(ctx, "s1", "p3", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryClaimer_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryClaimer(func() time.Time { return now })

	ok, err := c.TryClaim(ctx, "s1", "crashed", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(time.Minute)
	ok, err = c.TryClaim(ctx, "s1", "next", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryClaimer_PrunesAbandonedClaims(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryClaimer(func() time.Time { return now })

	for _, id := range []string{"s1", "s2", "s3"} {
		ok, err := c.TryClaim(ctx, id, "stuck", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 3, c.Len())

	now = now.Add(2 * time.Minute)
	ok, err := c.TryClaim(ctx, "other", "p1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestMemoryClaimer_HolderAndReplace(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryClaimer(func() time.Time { return now })

	holder, err := c.Holder(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, holder)

	ok, err := c.TryClaim(ctx, "s1", "p1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	holder, err = c.Holder(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "p1", holder)

	ok, err = c.Replace(ctx, "s1", "someone-else", "p2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Replace(ctx, "s1", "p1", "p2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	holder, err = c.Holder(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "p2", holder)

	now = now.Add(time.Minute)
	holder, err = c.Holder(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, holder, "an expired claim has no holder")

	ok, err = c.Replace(ctx, "s1", "p2", "p3", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "an expired claim cannot be handed over")
}

func TestRedisClaimer(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	c := NewRedisClaimer(rdb)
	session := "test-" + time.Now().Format("150405.000000000")

	ok, err := c.TryClaim(ctx, session, "p1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.TryClaim(ctx, session, "p2", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	holder, err := c.Holder(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "p1", holder)

	ok, err = c.Replace(ctx, session, "p2", "p3", 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Replace(ctx, session, "p1", "p3", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.Release(ctx, session, "p2"))
	require.NoError(t, c.Release(ctx, session, "p3"))

	holder, err = c.Holder(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, holder)

	ok, err = c.TryClaim(ctx, session, "p2", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, c.Release(ctx, session, "p2"))
}
