package contract

import (
	"context"

	"agentic-chat-be/internal/entity"
	"agentic-chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredDocumentEmbedding pairs an embedding row with its cosine
// similarity to the search query.
type ScoredDocumentEmbedding struct {
	Embedding  *entity.DocumentEmbedding
	Similarity float64
}

type DocumentEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.DocumentEmbedding) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentEmbedding, error)
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, minSimilarity float64) ([]*ScoredDocumentEmbedding, error)
}
