package implementation

import (
	"context"
	"errors"

	"agentic-chat-be/internal/entity"
	"agentic-chat-be/internal/mapper"
	"agentic-chat-be/internal/model"
	"agentic-chat-be/internal/repository/contract"
	"agentic-chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExchangeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewExchangeRepository(db *gorm.DB) contract.ExchangeRepository {
	return &ExchangeRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ExchangeRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ExchangeRepositoryImpl) Create(ctx context.Context, exchange *entity.Exchange) error {
	m := r.mapper.ExchangeToModel(exchange)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*exchange = *r.mapper.ExchangeToEntity(m)
	return nil
}

// SetMarked flips the mark flag only. The transcript columns stay
// untouched, preserving the append-only contract.
func (r *ExchangeRepositoryImpl) SetMarked(ctx context.Context, id uuid.UUID, marked bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Exchange{}).
		Where("id = ?", id).
		Update("is_marked", marked).Error
}

func (r *ExchangeRepositoryImpl) DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.Exchange{}).Error
}

func (r *ExchangeRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Exchange, error) {
	var m model.Exchange
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ExchangeToEntity(&m), nil
}

func (r *ExchangeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Exchange, error) {
	var models []*model.Exchange
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ExchangesToEntities(models), nil
}

func (r *ExchangeRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Exchange{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
