package dto

import (
	"time"

	"github.com/google/uuid"

	"agentic-chat-be/pkg/agent/render"
)

type CreateSessionRequest struct {
	Title string `json:"title"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type SubmitTurnRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Query         string    `json:"query" validate:"required"`
}

// SubmitTurnResponse carries the single-use token the client must echo
// back to execute the queued turn.
type SubmitTurnResponse struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
	TurnToken     string    `json:"turn_token"`
	Status        string    `json:"status"`
}

type AdvanceTurnRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	TurnToken     string    `json:"turn_token" validate:"required"`
}

type AdvanceTurnResponse struct {
	ChatSessionId uuid.UUID      `json:"chat_session_id"`
	Status        string         `json:"status"`
	Blocks        []render.Block `json:"blocks"`
}

// TranscriptExchange is one persisted exchange rendered for display.
type TranscriptExchange struct {
	Id        uuid.UUID              `json:"id"`
	UserText  string                 `json:"user_text"`
	Blocks    []render.Block         `json:"blocks"`
	Marked    bool                   `json:"is_marked"`
	Timestamp time.Time              `json:"timestamp"`
	Metrics   map[string]interface{} `json:"metrics,omitempty"`
}

type GetTranscriptResponse struct {
	ChatSessionId uuid.UUID            `json:"chat_session_id"`
	Exchanges     []TranscriptExchange `json:"exchanges"`
}

type SetMarkRequest struct {
	ExchangeId uuid.UUID `json:"exchange_id" validate:"required"`
	Marked     bool      `json:"is_marked"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id"`
}
