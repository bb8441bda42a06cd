package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentic-chat-be/internal/dto"
	"agentic-chat-be/internal/entity"
	"agentic-chat-be/internal/pkg/logger"
	"agentic-chat-be/internal/repository/specification"
	"agentic-chat-be/internal/repository/unitofwork"
	"agentic-chat-be/pkg/embedding"
	"agentic-chat-be/pkg/events"
	pktNats "agentic-chat-be/pkg/nats"
	"agentic-chat-be/pkg/rag/rerank"
	"agentic-chat-be/pkg/store"

	"github.com/google/uuid"
)

const (
	defaultSearchLimit  = 10
	minSearchSimilarity = 0.3
)

type IKnowledgeService interface {
	CreateDocument(ctx context.Context, userId uuid.UUID, req *dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	GetAllDocuments(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*dto.DocumentResponse, error)
	DeleteDocument(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	Search(ctx context.Context, userId uuid.UUID, req *dto.SearchRequest) (*dto.SearchResponse, error)
}

type knowledgeService struct {
	uowFactory        unitofwork.RepositoryFactory
	publisherService  IPublisherService
	embeddingProvider embedding.EmbeddingProvider
	reranker          *rerank.Reranker
	eventPublisher    *pktNats.Publisher
	logger            logger.ILogger
}

func NewKnowledgeService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	embeddingProvider embedding.EmbeddingProvider,
	reranker *rerank.Reranker,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IKnowledgeService {
	return &knowledgeService{
		uowFactory:        uowFactory,
		publisherService:  publisherService,
		embeddingProvider: embeddingProvider,
		reranker:          reranker,
		eventPublisher:    eventPublisher,
		logger:            log,
	}
}

func (k *knowledgeService) CreateDocument(ctx context.Context, userId uuid.UUID, req *dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	uow := k.uowFactory.NewUnitOfWork(ctx)

	doc := entity.Document{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}

	if err := uow.DocumentRepository().Create(ctx, &doc); err != nil {
		return nil, err
	}

	// Embedding happens off the request path.
	msgJson, err := json.Marshal(dto.PublishEmbedDocumentMessage{DocumentId: doc.Id})
	if err != nil {
		return nil, err
	}
	if err := k.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	if k.eventPublisher != nil {
		if err := k.eventPublisher.Publish(ctx, events.NewDocumentIngested(doc.Id, userId)); err != nil {
			k.logger.Warn("KnowledgeService", "Failed to publish ingest event", map[string]interface{}{
				"document_id": doc.Id,
				"error":       err.Error(),
			})
		}
	}

	return &dto.DocumentResponse{
		Id:        doc.Id,
		Title:     doc.Title,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (k *knowledgeService) GetAllDocuments(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*dto.DocumentResponse, error) {
	uow := k.uowFactory.NewUnitOfWork(ctx)

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.DocumentResponse, len(docs))
	for i, d := range docs {
		responses[i] = &dto.DocumentResponse{
			Id:        d.Id,
			Title:     d.Title,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		}
	}
	return responses, nil
}

func (k *knowledgeService) DeleteDocument(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := k.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document not found")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentEmbeddingRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}
	return uow.Commit()
}

// Search runs vector retrieval and passes the candidates through the
// relevance judge before returning them.
func (k *knowledgeService) Search(ctx context.Context, userId uuid.UUID, req *dto.SearchRequest) (*dto.SearchResponse, error) {
	uow := k.uowFactory.NewUnitOfWork(ctx)

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	res, err := k.embeddingProvider.Generate(req.Query, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := uow.DocumentEmbeddingRepository().SearchSimilarWithScore(ctx, res.Embedding.Values, limit, userId, minSearchSimilarity)
	if err != nil {
		return nil, err
	}
	if len(scored) == 0 {
		return &dto.SearchResponse{Query: req.Query, Results: []dto.SearchResult{}}, nil
	}

	// Titles for display come from the parent documents.
	docIds := make([]uuid.UUID, 0, len(scored))
	seen := make(map[uuid.UUID]bool)
	for _, s := range scored {
		if !seen[s.Embedding.DocumentId] {
			seen[s.Embedding.DocumentId] = true
			docIds = append(docIds, s.Embedding.DocumentId)
		}
	}
	parents, err := uow.DocumentRepository().FindAll(ctx, specification.ByIDs{IDs: docIds})
	if err != nil {
		return nil, err
	}
	titles := make(map[uuid.UUID]string, len(parents))
	for _, p := range parents {
		titles[p.Id] = p.Title
	}

	candidates := make([]*store.Document, len(scored))
	for i, s := range scored {
		candidates[i] = &store.Document{
			ID:      s.Embedding.Id.String(),
			Title:   titles[s.Embedding.DocumentId],
			Content: s.Embedding.Chunk,
			Score:   float32(s.Similarity),
			Metadata: map[string]interface{}{
				"document_id": s.Embedding.DocumentId.String(),
			},
		}
	}

	results := k.reranker.RerankResults(ctx, req.Query, candidates)

	out := make([]dto.SearchResult, len(results))
	for i, r := range results {
		docId, _ := uuid.Parse(r.Document.Metadata["document_id"].(string))
		score := r.Score
		out[i] = dto.SearchResult{
			DocumentId:  docId,
			Title:       r.Document.Title,
			Chunk:       r.Document.Content,
			Similarity:  float64(r.Document.Score),
			RerankScore: &score,
			Outcome:     r.Outcome.String(),
		}
	}

	return &dto.SearchResponse{Query: req.Query, Results: out}, nil
}
