package claim

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chat:session-claim:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var replaceScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// RedisClaimer shares claims between server instances.
type RedisClaimer struct {
	rdb redis.UniversalClient
}

func NewRedisClaimer(rdb redis.UniversalClient) *RedisClaimer {
	return &RedisClaimer{rdb: rdb}
}

func (c *RedisClaimer) TryClaim(ctx context.Context, sessionID, owner string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, keyPrefix+sessionID, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim session %s: %w", sessionID, err)
	}
	return ok, nil
}

func (c *RedisClaimer) Holder(ctx context.Context, sessionID string) (string, error) {
	owner, err := c.rdb.Get(ctx, keyPrefix+sessionID).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read claim of session %s: %w", sessionID, err)
	}
	return owner, nil
}

func (c *RedisClaimer) Replace(ctx context.Context, sessionID, from, to string, ttl time.Duration) (bool, error) {
	n, err := replaceScript.Run(ctx, c.rdb, []string{keyPrefix + sessionID}, from, to, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("replace claim of session %s: %w", sessionID, err)
	}
	return n == 1, nil
}

func (c *RedisClaimer) Release(ctx context.Context, sessionID, owner string) error {
	if err := releaseScript.Run(ctx, c.rdb, []string{keyPrefix + sessionID}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release session %s: %w", sessionID, err)
	}
	return nil
}
