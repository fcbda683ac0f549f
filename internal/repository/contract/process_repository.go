package contract

import (
	"context"

	"ai-chatbot-be/internal/entity"
)

// ProcessRepository stores processes keyed by (sessionId, id).
type ProcessRepository interface {
	Save(ctx context.Context, process *entity.Process) error
	Delete(ctx context.Context, sessionId, id string) error
	FindById(ctx context.Context, sessionId, id string) (*entity.Process, error)
	// FindAllBySessionId returns the session's processes oldest first.
	FindAllBySessionId(ctx context.Context, sessionId string) ([]*entity.Process, error)
}
