package memory

import (
	"context"

	"ai-chatbot-be/internal/repository/contract"
	"ai-chatbot-be/internal/repository/unitofwork"
)

// RepositoryFactory shares one set of in-memory repositories across every
// unit of work. Transactions are not supported and Begin/Commit do nothing.
type RepositoryFactory struct {
	sessions  *SessionRepository
	processes *ProcessRepository
	cache     *CacheRepository
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{
		sessions:  NewSessionRepository(),
		processes: NewProcessRepository(),
		cache:     NewCacheRepository(),
	}
}

var _ unitofwork.RepositoryFactory = (*RepositoryFactory)(nil)

func (f *RepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{factory: f}
}

type unitOfWork struct {
	factory *RepositoryFactory
}

func (u *unitOfWork) Begin(ctx context.Context) error { return nil }
func (u *unitOfWork) Commit() error                   { return nil }
func (u *unitOfWork) Rollback() error                 { return nil }

func (u *unitOfWork) SessionRepository() contract.SessionRepository {
	return u.factory.sessions
}

func (u *unitOfWork) ProcessRepository() contract.ProcessRepository {
	return u.factory.processes
}

func (u *unitOfWork) CacheRepository() contract.CacheRepository {
	return u.factory.cache
}
