package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agentic-chat-be/internal/dto"
	"agentic-chat-be/internal/entity"
	"agentic-chat-be/internal/pkg/logger"
	"agentic-chat-be/internal/repository/memory"
	"agentic-chat-be/internal/repository/specification"
	"agentic-chat-be/internal/repository/unitofwork"
	"agentic-chat-be/internal/websocket"
	"agentic-chat-be/pkg/agent/history"
	"agentic-chat-be/pkg/agent/render"
	"agentic-chat-be/pkg/agent/turn"
	"agentic-chat-be/pkg/events"
	pktNats "agentic-chat-be/pkg/nats"
	"agentic-chat-be/pkg/stream"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("chat session not found")

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	GetTranscript(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, markedOnly bool) (*dto.GetTranscriptResponse, error)
	SubmitTurn(ctx context.Context, userId uuid.UUID, req *dto.SubmitTurnRequest) (*dto.SubmitTurnResponse, error)
	AdvanceTurn(ctx context.Context, userId uuid.UUID, req *dto.AdvanceTurnRequest) (*dto.AdvanceTurnResponse, error)
	SetMark(ctx context.Context, userId uuid.UUID, req *dto.SetMarkRequest) error
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	turnStates     *memory.TurnStateRepository
	controller     *turn.Controller
	defaultFlags   history.Flags
	hub            *websocket.Hub
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	turnStates *memory.TurnStateRepository,
	runner turn.Runner,
	defaultFlags history.Flags,
	hub *websocket.Hub,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IChatService {
	controller := turn.NewController(&exchangeStore{uowFactory: uowFactory}, runner)
	s := &chatService{
		uowFactory:     uowFactory,
		turnStates:     turnStates,
		controller:     controller,
		defaultFlags:   defaultFlags,
		hub:            hub,
		eventPublisher: eventPublisher,
		logger:         log,
	}
	if hub != nil {
		controller.OnRender = func(state *turn.SessionState, status turn.Status, blocks []render.Block) {
			hub.SendTranscript(state.SessionId, string(status), blocks)
		}
	}
	return s
}

// exchangeStore adapts the repository layer to the turn controller's
// persistence contract.
type exchangeStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func (s *exchangeStore) SaveExchange(ctx context.Context, exchange *entity.Exchange) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ExchangeRepository().Create(ctx, exchange)
}

func (s *exchangeStore) LoadExchanges(ctx context.Context, sessionId uuid.UUID) ([]*entity.Exchange, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ExchangeRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "timestamp"},
	)
}

func (c *chatService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	title := req.Title
	if title == "" {
		title = "New Chat"
	}

	session := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		CreatedAt: time.Now(),
	}

	if err := uow.ChatSessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (c *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.GetAllSessionsResponse, len(sessions))
	for i, s := range sessions {
		responses[i] = &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		}
	}
	return responses, nil
}

func (c *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	session, err := c.ownedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ExchangeRepository().DeleteBySessionId(ctx, session.Id); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, session.Id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	c.turnStates.Delete(sessionId.String())
	return nil
}

func (c *chatService) GetTranscript(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, markedOnly bool) (*dto.GetTranscriptResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if _, err := c.ownedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	specs := []specification.Specification{
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "timestamp"},
	}
	if markedOnly {
		specs = append(specs, specification.MarkedOnly{})
	}
	exchanges, err := uow.ExchangeRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	rendered := make([]dto.TranscriptExchange, len(exchanges))
	for i, ex := range exchanges {
		rendered[i] = dto.TranscriptExchange{
			Id:        ex.Id,
			UserText:  ex.UserText,
			Blocks:    render.Aggregate(stream.DecodeLog(ex.RawEventLog)),
			Marked:    ex.Marked,
			Timestamp: ex.Timestamp,
			Metrics:   history.ExtractMetrics(ex.RawEventLog),
		}
	}

	return &dto.GetTranscriptResponse{
		ChatSessionId: sessionId,
		Exchanges:     rendered,
	}, nil
}

func (c *chatService) SubmitTurn(ctx context.Context, userId uuid.UUID, req *dto.SubmitTurnRequest) (*dto.SubmitTurnResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if _, err := c.ownedSession(ctx, uow, userId, req.ChatSessionId); err != nil {
		return nil, err
	}

	state, found := c.turnStates.Get(req.ChatSessionId.String())
	if !found {
		loaded, err := c.controller.LoadSession(ctx, req.ChatSessionId, userId, c.defaultFlags)
		if err != nil {
			return nil, err
		}
		state = loaded
		c.turnStates.Save(state)
	}

	token, err := c.controller.Submit(state, req.Query)
	if err != nil {
		return nil, err
	}

	c.logger.Info("ChatService", "Turn queued", map[string]interface{}{
		"session_id": req.ChatSessionId,
	})

	return &dto.SubmitTurnResponse{
		ChatSessionId: req.ChatSessionId,
		TurnToken:     token,
		Status:        string(turn.StatusQueued),
	}, nil
}

func (c *chatService) AdvanceTurn(ctx context.Context, userId uuid.UUID, req *dto.AdvanceTurnRequest) (*dto.AdvanceTurnResponse, error) {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	if _, err := c.ownedSession(ctx, uow, userId, req.ChatSessionId); err != nil {
		return nil, err
	}

	state, found := c.turnStates.Get(req.ChatSessionId.String())
	if !found {
		return nil, fmt.Errorf("no in-flight turn for session %s", req.ChatSessionId)
	}

	err := c.controller.Advance(ctx, state, req.TurnToken)
	if errors.Is(err, turn.ErrNoQueuedTurn) || errors.Is(err, turn.ErrStaleToken) {
		return nil, err
	}
	if err != nil {
		// The turn still finished and persisted; the transcript
		// carries the failure notice.
		c.logger.Warn("ChatService", "Turn ended with stream error", map[string]interface{}{
			"session_id": req.ChatSessionId,
			"error":      err.Error(),
		})
	}

	c.publishExchangePersisted(ctx, state)

	status, blocks := state.TurnView()
	if c.hub != nil {
		c.hub.SendTranscript(state.SessionId, string(status), blocks)
	}

	return &dto.AdvanceTurnResponse{
		ChatSessionId: req.ChatSessionId,
		Status:        string(status),
		Blocks:        blocks,
	}, nil
}

func (c *chatService) SetMark(ctx context.Context, userId uuid.UUID, req *dto.SetMarkRequest) error {
	uow := c.uowFactory.NewUnitOfWork(ctx)

	exchange, err := uow.ExchangeRepository().FindOne(ctx, specification.ByID{ID: req.ExchangeId})
	if err != nil {
		return err
	}
	if exchange == nil {
		return fmt.Errorf("exchange not found")
	}

	if _, err := c.ownedSession(ctx, uow, userId, exchange.SessionId); err != nil {
		return err
	}

	if err := uow.ExchangeRepository().SetMarked(ctx, req.ExchangeId, req.Marked); err != nil {
		return err
	}

	// The cached context window must see the new pin on the next turn.
	if state, found := c.turnStates.Get(exchange.SessionId.String()); found {
		state.MarkExchange(req.ExchangeId, req.Marked)
	}
	return nil
}

func (c *chatService) ownedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (c *chatService) publishExchangePersisted(ctx context.Context, state *turn.SessionState) {
	if c.eventPublisher == nil {
		return
	}
	latest := state.LatestExchange()
	if latest == nil {
		return
	}
	evt := events.NewExchangePersisted(state.SessionId, latest.Id, latest.UserText)
	if err := c.eventPublisher.Publish(ctx, evt); err != nil {
		c.logger.Warn("ChatService", "Failed to publish exchange event", map[string]interface{}{
			"session_id": state.SessionId,
			"error":      err.Error(),
		})
	}
}
