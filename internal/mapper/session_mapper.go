package mapper

import (
	"encoding/json"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/model"

	"gorm.io/datatypes"
)

// SessionMapper converts between entities and GORM models. Times are stored
// in UTC so SQLite's text timestamps compare in order.
type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

// Session Mappers

func (m *SessionMapper) SessionToEntity(s *model.Session) *entity.Session {
	if s == nil {
		return nil
	}
	return &entity.Session{
		Id:             s.Id,
		AgentId:        s.AgentId,
		Version:        s.Version,
		SourcePage:     s.SourcePage,
		Status:         s.Status,
		Rating:         s.Rating,
		Solved:         s.Solved,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
}

func (m *SessionMapper) SessionToModel(s *entity.Session) *model.Session {
	if s == nil {
		return nil
	}
	return &model.Session{
		Id:             s.Id,
		AgentId:        s.AgentId,
		Version:        s.Version,
		SourcePage:     s.SourcePage,
		Status:         s.Status,
		Rating:         s.Rating,
		Solved:         s.Solved,
		CreatedAt:      s.CreatedAt.UTC(),
		LastActivityAt: s.LastActivityAt.UTC(),
	}
}

// Process Mappers

func (m *SessionMapper) ProcessToEntity(p *model.Process) *entity.Process {
	if p == nil {
		return nil
	}
	return &entity.Process{
		Id:                p.Id,
		SessionId:         p.SessionId,
		Query:             p.Query,
		Status:            p.Status,
		Agent:             p.Agent,
		StartedAt:         p.StartedAt,
		Responses:         m.ResponsesToEntity(p.Responses),
		SolvedRequested:   p.SolvedRequested,
		ContinueRequested: p.ContinueRequested,
	}
}

func (m *SessionMapper) ProcessToModel(p *entity.Process) *model.Process {
	if p == nil {
		return nil
	}
	return &model.Process{
		Id:                p.Id,
		SessionId:         p.SessionId,
		Query:             p.Query,
		Status:            p.Status,
		Agent:             p.Agent,
		StartedAt:         p.StartedAt.UTC(),
		Responses:         m.ResponsesToModel(p.Responses),
		SolvedRequested:   p.SolvedRequested,
		ContinueRequested: p.ContinueRequested,
	}
}

func (m *SessionMapper) ProcessesToEntities(models []*model.Process) []*entity.Process {
	entities := make([]*entity.Process, len(models))
	for i, p := range models {
		entities[i] = m.ProcessToEntity(p)
	}
	return entities
}

func (m *SessionMapper) ResponsesToEntity(responses []model.ProcessResponse) []entity.ProcessResponse {
	result := make([]entity.ProcessResponse, 0, len(responses))
	for _, r := range responses {
		var rich *entity.RichContent
		if len(r.RichContent) > 0 && string(r.RichContent) != "null" {
			rich = &entity.RichContent{}
			if err := json.Unmarshal(r.RichContent, rich); err != nil {
				rich = nil
			}
		}
		result = append(result, entity.ProcessResponse{
			ResponseId:  r.ResponseId,
			CreatedAt:   r.CreatedAt,
			Text:        r.Response,
			RichContent: rich,
		})
	}
	return result
}

func (m *SessionMapper) ResponsesToModel(responses []entity.ProcessResponse) []model.ProcessResponse {
	result := make([]model.ProcessResponse, 0, len(responses))
	for _, r := range responses {
		var rich datatypes.JSON
		if r.RichContent != nil {
			if b, err := json.Marshal(r.RichContent); err == nil {
				rich = datatypes.JSON(b)
			}
		}
		result = append(result, model.ProcessResponse{
			ResponseId:  r.ResponseId,
			CreatedAt:   r.CreatedAt,
			Response:    r.Text,
			RichContent: rich,
		})
	}
	return result
}

// Cache Mappers

func (m *SessionMapper) CacheEntryToEntity(c *model.CacheEntry) *entity.CacheEntry {
	if c == nil {
		return nil
	}
	return &entity.CacheEntry{
		Key:          c.Key,
		Value:        c.Value,
		UpdatedAt:    c.UpdatedAt,
		ExpirationAt: c.ExpirationAt,
	}
}

func (m *SessionMapper) CacheEntryToModel(c *entity.CacheEntry) *model.CacheEntry {
	if c == nil {
		return nil
	}
	return &model.CacheEntry{
		Key:          c.Key,
		Value:        c.Value,
		UpdatedAt:    c.UpdatedAt.UTC(),
		ExpirationAt: c.ExpirationAt.UTC(),
	}
}
