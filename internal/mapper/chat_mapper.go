package mapper

import (
	"time"

	"agentic-chat-be/internal/entity"
	"agentic-chat-be/internal/model"

	"gorm.io/gorm"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: s.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

// Exchange Mappers

func (m *ChatMapper) ExchangeToEntity(e *model.Exchange) *entity.Exchange {
	if e == nil {
		return nil
	}

	return &entity.Exchange{
		Id:          e.Id,
		SessionId:   e.SessionId,
		UserText:    e.UserText,
		RawEventLog: e.RawEventLog,
		Timestamp:   e.Timestamp,
		Marked:      e.IsMarked,
	}
}

func (m *ChatMapper) ExchangeToModel(e *entity.Exchange) *model.Exchange {
	if e == nil {
		return nil
	}

	return &model.Exchange{
		Id:          e.Id,
		SessionId:   e.SessionId,
		UserText:    e.UserText,
		RawEventLog: e.RawEventLog,
		Timestamp:   e.Timestamp,
		IsMarked:    e.Marked,
	}
}

func (m *ChatMapper) ExchangesToEntities(models []*model.Exchange) []*entity.Exchange {
	entities := make([]*entity.Exchange, len(models))
	for i, mo := range models {
		entities[i] = m.ExchangeToEntity(mo)
	}
	return entities
}
