// Package claim guards the "one running process per session" rule with an
// atomic, expiring claim keyed by session id.
package claim

import (
	"context"
	"sync"
	"time"
)

type Claimer interface {
	// TryClaim takes the session for owner until ttl elapses. It returns
	// false when another owner holds a live claim.
	TryClaim(ctx context.Context, sessionID, owner string, ttl time.Duration) (bool, error)
	// Holder returns the owner of the live claim, or "" when there is none.
	Holder(ctx context.Context, sessionID string) (string, error)
	// Replace hands the claim from one owner to another in a single step. It
	// returns false when from no longer holds it.
	Replace(ctx context.Context, sessionID, from, to string, ttl time.Duration) (bool, error)
	// Release drops the claim only if owner still holds it.
	Release(ctx context.Context, sessionID, owner string) error
}

type heldClaim struct {
	owner     string
	expiresAt time.Time
}

// MemoryClaimer keeps claims in process memory.
type MemoryClaimer struct {
	mu     sync.Mutex
	claims map[string]heldClaim
	now    func() time.Time
}

func NewMemoryClaimer(now func() time.Time) *MemoryClaimer {
	if now == nil {
		now = time.Now
	}
	return &MemoryClaimer{
		claims: make(map[string]heldClaim),
		now:    now,
	}
}

func (c *MemoryClaimer) TryClaim(ctx context.Context, sessionID, owner string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.prune(now)
	if _, ok := c.claims[sessionID]; ok {
		return false, nil
	}
	c.claims[sessionID] = heldClaim{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (c *MemoryClaimer) Holder(ctx context.Context, sessionID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if held, ok := c.claims[sessionID]; ok && held.expiresAt.After(c.now()) {
		return held.owner, nil
	}
	return "", nil
}

func (c *MemoryClaimer) Replace(ctx context.Context, sessionID, from, to string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	held, ok := c.claims[sessionID]
	if !ok || held.owner != from || !held.expiresAt.After(now) {
		return false, nil
	}
	c.claims[sessionID] = heldClaim{owner: to, expiresAt: now.Add(ttl)}
	return true, nil
}

func (c *MemoryClaimer) Release(ctx context.Context, sessionID, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if held, ok := c.claims[sessionID]; ok && held.owner == owner {
		delete(c.claims, sessionID)
	}
	return nil
}

// Len reports the number of claims still stored, live or not yet pruned.
func (c *MemoryClaimer) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.claims)
}

// prune drops claims whose holder never released them. Callers hold mu.
func (c *MemoryClaimer) prune(now time.Time) {
	for id, held := range c.claims {
		if !held.expiresAt.After(now) {
			delete(c.claims, id)
		}
	}
}
