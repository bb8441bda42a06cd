package memory

import (
	"time"

	"github.com/patrickmn/go-cache"

	"agentic-chat-be/pkg/agent/turn"
)

// TurnStateRepository keeps per-session turn state in process memory.
// A session that goes quiet for an hour is evicted; its next request
// simply reloads history from the database and starts idle again.
type TurnStateRepository struct {
	cache *cache.Cache
}

func NewTurnStateRepository() *TurnStateRepository {
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &TurnStateRepository{
		cache: c,
	}
}

func (r *TurnStateRepository) Save(state *turn.SessionState) {
	r.cache.Set(state.SessionId.String(), state, cache.DefaultExpiration)
}

func (r *TurnStateRepository) Get(sessionID string) (*turn.SessionState, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*turn.SessionState), true
	}
	return nil, false
}

func (r *TurnStateRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}
