package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic-chat-be/pkg/agent/render"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func TestSendTranscriptDropsSlowWatcherOnce(t *testing.T) {
	hub := NewHub(nil, nopLogger{})
	go hub.Run()

	sessionID := uuid.New()
	slow := &Client{Hub: hub, SessionID: sessionID, Send: make(chan []byte, 1)}
	hub.register <- slow

	blocks := []render.Block{{Type: render.BlockText, Text: "hello"}}

	// First push fills the buffer; the watcher never drains it.
	hub.SendTranscript(sessionID, "streaming", blocks)

	// Every further push finds the buffer full and asks the hub to
	// drop the watcher. Only the unregister branch may close Send, so
	// repeated pushes must not close it twice.
	hub.SendTranscript(sessionID, "streaming", blocks)
	hub.SendTranscript(sessionID, "done", blocks)

	// Drain until the hub closes the channel.
	first := <-slow.Send
	assert.NotEmpty(t, first)
	select {
	case _, ok := <-slow.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("slow watcher was never unregistered")
	}

	// The session entry is gone, so later pushes are local no-ops.
	hub.SendTranscript(sessionID, "done", blocks)
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		_, ok := hub.clients[sessionID]
		return !ok
	}, time.Second, 10*time.Millisecond)
}
