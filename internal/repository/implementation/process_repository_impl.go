package implementation

import (
	"context"
	"errors"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/mapper"
	"ai-chatbot-be/internal/model"
	"ai-chatbot-be/internal/repository/contract"
	"ai-chatbot-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProcessRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewProcessRepository(db *gorm.DB) contract.ProcessRepository {
	return &ProcessRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *ProcessRepositoryImpl) Save(ctx context.Context, process *entity.Process) error {
	m := r.mapper.ProcessToModel(process)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "session_id"}},
			UpdateAll: true,
		}).
		Create(m).Error
}

func (r *ProcessRepositoryImpl) Delete(ctx context.Context, sessionId, id string) error {
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByID{ID: id},
		specification.BySessionID{SessionID: sessionId},
	)
	return query.Delete(&model.Process{}).Error
}

func (r *ProcessRepositoryImpl) FindById(ctx context.Context, sessionId, id string) (*entity.Process, error) {
	var m model.Process
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByID{ID: id},
		specification.BySessionID{SessionID: sessionId},
	)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ProcessToEntity(&m), nil
}

func (r *ProcessRepositoryImpl) FindAllBySessionId(ctx context.Context, sessionId string) ([]*entity.Process, error) {
	var models []*model.Process
	query := applySpecifications(r.db.WithContext(ctx),
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "started_at", Desc: false},
		specification.OrderBy{Field: "id", Desc: false},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ProcessesToEntities(models), nil
}
