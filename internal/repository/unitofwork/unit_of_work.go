package unitofwork

import (
	"context"

	"ai-chatbot-be/internal/repository/contract"
)

// UnitOfWork groups the repositories of one storage backend. Begin/Commit
// scope the repositories obtained afterwards to a single transaction; the
// in-memory backend treats them as no-ops.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	ProcessRepository() contract.ProcessRepository
	CacheRepository() contract.CacheRepository
}
