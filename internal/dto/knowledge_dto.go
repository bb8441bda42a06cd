package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateDocumentRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type DocumentResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type SearchRequest struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit" validate:"max=50"`
}

// SearchResult is one reranked retrieval hit. Outcome tells the client
// whether the rerank score came from a real judgment or a fallback.
type SearchResult struct {
	DocumentId  uuid.UUID `json:"document_id"`
	Title       string    `json:"title"`
	Chunk       string    `json:"chunk"`
	Similarity  float64   `json:"similarity"`
	RerankScore *float64  `json:"rerank_score,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
}

type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// PublishEmbedDocumentMessage is the bus payload queued when a document
// needs (re)embedding.
type PublishEmbedDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
