package contract

import (
	"context"

	"agentic-chat-be/internal/entity"
	"agentic-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ExchangeRepository is append-only for transcript content: Create is
// the single write of user_text and raw_event_log, and SetMarked is the
// only mutation allowed afterwards.
type ExchangeRepository interface {
	Create(ctx context.Context, exchange *entity.Exchange) error
	SetMarked(ctx context.Context, id uuid.UUID, marked bool) error
	DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Exchange, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Exchange, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
