package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is a knowledge-base source document.
type Document struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Title     string
	Content   string
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

// DocumentEmbedding is one embedded chunk of a document, stored as a
// pgvector row for similarity search.
type DocumentEmbedding struct {
	Id         uuid.UUID
	DocumentId uuid.UUID
	Chunk      string
	Embedding  []float32
	CreatedAt  time.Time
}
