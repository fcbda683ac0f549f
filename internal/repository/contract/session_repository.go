package contract

import (
	"context"
	"time"

	"ai-chatbot-be/internal/entity"
)

// SessionRepository stores sessions keyed by id. Find methods return
// (nil, nil) when nothing matches. LastActivityAt never moves backwards:
// both Save and TouchActivity keep the later of the stored and given values.
type SessionRepository interface {
	Save(ctx context.Context, session *entity.Session) error
	TouchActivity(ctx context.Context, id string, at time.Time) error
	FindById(ctx context.Context, id string) (*entity.Session, error)
}
