package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"agentic-chat-be/internal/pkg/logger"
	"agentic-chat-be/pkg/agent/render"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Hub fans partial transcripts out to the clients watching a session.
// Each turn event re-renders the transcript and pushes the fresh block
// list, so a browser tab shows the answer growing without polling.
type Hub struct {
	// Registered clients map: SessionID -> List of Clients (multi-tab)
	clients map[uuid.UUID][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

// TranscriptUpdate is the wire payload pushed on every re-render.
type TranscriptUpdate struct {
	SessionID string         `json:"session_id"`
	Status    string         `json:"status"`
	Blocks    []render.Block `json:"blocks"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
					h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"session_id": client.SessionID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// SendTranscript pushes the current transcript rendering to everyone
// watching the session, locally and across instances via Redis.
func (h *Hub) SendTranscript(sessionID uuid.UUID, status string, blocks []render.Block) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "transcript",
		"data": TranscriptUpdate{
			SessionID: sessionID.String(),
			Status:    status,
			Blocks:    blocks,
		},
	})

	// Sends happen under the read lock: the unregister branch closes
	// Send only while holding the write lock, so a send can never hit
	// a closed channel. Slow watchers are collected and handed to the
	// unregister branch, the sole closer, after the lock is released.
	var dead []*Client
	h.mu.RLock()
	for _, client := range h.clients[sessionID] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"session_id": sessionID})
			dead = append(dead, client)
		}
	}
	h.mu.RUnlock()
	for _, client := range dead {
		h.unregister <- client
	}

	// Other instances may hold watchers for the same session.
	if h.rdb != nil {
		payload := map[string]interface{}{
			"target_session_id": sessionID.String(),
			"message":           data,
		}
		jsonPayload, _ := json.Marshal(payload)
		h.rdb.Publish(context.Background(), "cluster_events", jsonPayload)
	}
}

func (h *Hub) subscribeToRedis() {
	// All instances subscribe to "cluster_events". When a message
	// arrives, deliver it only if the target session has local watchers.
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetSessionID string          `json:"target_session_id"`
			Message         json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		sid, err := uuid.Parse(payload.TargetSessionID)
		if err != nil {
			continue
		}

		var dead []*Client
		h.mu.RLock()
		for _, client := range h.clients[sid] {
			select {
			case client.Send <- payload.Message:
			default:
				dead = append(dead, client)
			}
		}
		h.mu.RUnlock()
		for _, client := range dead {
			h.unregister <- client
		}
	}
}
