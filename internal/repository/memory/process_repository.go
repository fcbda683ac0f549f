package memory

import (
	"context"
	"sort"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

type ProcessRepository struct {
	cache *cache.Cache
}

func NewProcessRepository() *ProcessRepository {
	return &ProcessRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

var _ contract.ProcessRepository = (*ProcessRepository)(nil)

func processKey(sessionId, id string) string {
	return sessionId + "/" + id
}

// Save stores a copy, so a reader never sees a process that is still being
// built by its writer.
func (r *ProcessRepository) Save(ctx context.Context, process *entity.Process) error {
	r.cache.Set(processKey(process.SessionId, process.Id), process.Clone(), cache.NoExpiration)
	return nil
}

func (r *ProcessRepository) Delete(ctx context.Context, sessionId, id string) error {
	r.cache.Delete(processKey(sessionId, id))
	return nil
}

func (r *ProcessRepository) FindById(ctx context.Context, sessionId, id string) (*entity.Process, error) {
	if x, found := r.cache.Get(processKey(sessionId, id)); found {
		return x.(*entity.Process).Clone(), nil
	}
	return nil, nil
}

func (r *ProcessRepository) FindAllBySessionId(ctx context.Context, sessionId string) ([]*entity.Process, error) {
	result := make([]*entity.Process, 0)
	for _, item := range r.cache.Items() {
		p := item.Object.(*entity.Process)
		if p.SessionId == sessionId {
			result = append(result, p.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		ti, tj := result[i].Timestamp(), result[j].Timestamp()
		if ti.Equal(tj) {
			return result[i].Id < result[j].Id
		}
		return ti.Before(tj)
	})
	return result, nil
}
