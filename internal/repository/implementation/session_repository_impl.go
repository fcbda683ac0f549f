package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/mapper"
	"ai-chatbot-be/internal/model"
	"ai-chatbot-be/internal/repository/contract"
	"ai-chatbot-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionRepositoryImpl) Save(ctx context.Context, session *entity.Session) error {
	m := r.mapper.SessionToModel(session)
	updates := clause.AssignmentColumns([]string{"agent_id", "version", "source_page", "status", "rating", "solved"})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "last_activity_at"},
		Value:  gorm.Expr(laterOf(r.db, "sessions.last_activity_at", "excluded.last_activity_at")),
	})
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: updates,
		}).
		Create(m).Error
}

func (r *SessionRepositoryImpl) TouchActivity(ctx context.Context, id string, at time.Time) error {
	query := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id})
	return query.Model(&model.Session{}).
		Where("last_activity_at < ?", at.UTC()).
		Update("last_activity_at", at.UTC()).Error
}

// laterOf picks the greater of two columns. SQLite spells GREATEST as a
// multi-argument MAX.
func laterOf(db *gorm.DB, a, b string) string {
	if db.Dialector.Name() == "sqlite" {
		return fmt.Sprintf("MAX(%s, %s)", a, b)
	}
	return fmt.Sprintf("GREATEST(%s, %s)", a, b)
}

func (r *SessionRepositoryImpl) FindById(ctx context.Context, id string) (*entity.Session, error) {
	var m model.Session
	query := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}
