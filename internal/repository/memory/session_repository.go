package memory

import (
	"context"
	"sync"
	"time"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	// mu serializes read-modify-write on LastActivityAt.
	mu    sync.Mutex
	cache *cache.Cache
}

// NewSessionRepository keeps sessions until the process exits; sessions are
// never deleted by this service.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

func (r *SessionRepository) Save(ctx context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := session.Clone()
	if x, found := r.cache.Get(session.Id); found {
		stored.Touch(x.(*entity.Session).LastActivityAt)
	}
	r.cache.Set(session.Id, stored, cache.NoExpiration)
	return nil
}

func (r *SessionRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(id)
	if !found {
		return nil
	}
	updated := x.(*entity.Session).Clone()
	updated.Touch(at)
	r.cache.Set(id, updated, cache.NoExpiration)
	return nil
}

func (r *SessionRepository) FindById(ctx context.Context, id string) (*entity.Session, error) {
	if x, found := r.cache.Get(id); found {
		return x.(*entity.Session).Clone(), nil
	}
	return nil, nil
}
