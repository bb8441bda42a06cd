package turn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentic-chat-be/internal/entity"
	"agentic-chat-be/pkg/agent/history"
	"agentic-chat-be/pkg/agent/render"
	"agentic-chat-be/pkg/stream"
)

// Status is the lifecycle phase of a turn within its session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusQueued    Status = "queued"
	StatusStreaming Status = "streaming"
	StatusDone      Status = "done"
)

var (
	ErrTurnInFlight = errors.New("turn: a turn is already in flight for this session")
	ErrNoQueuedTurn = errors.New("turn: no queued turn to advance")
	ErrStaleToken   = errors.New("turn: advance token already consumed")
)

// Turn holds the state of a single query as it streams. Events is the
// raw ordered sequence; Blocks is its current rendering. Both grow
// monotonically while streaming.
type Turn struct {
	Query  string
	Status Status
	Events []stream.Event
	Blocks []render.Block

	// token authorizes exactly one Advance call per Submit. A stale
	// poll tick that replays an old token cannot re-run the turn.
	token string
}

// SessionState is everything the controller tracks for one chat
// session: the persisted exchange history and the current turn. One
// state is shared across the request handlers touching its session, so
// mu guards every field; the streaming goroutine owns the turn's
// event/block growth alone once it holds the token.
type SessionState struct {
	mu sync.Mutex

	SessionId uuid.UUID
	UserId    uuid.UUID
	Flags     history.Flags
	Exchanges []*entity.Exchange
	Turn      *Turn
}

// TurnView reads the current turn's status and rendered blocks.
func (s *SessionState) TurnView() (Status, []render.Block) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Turn == nil {
		return StatusIdle, nil
	}
	return s.Turn.Status, s.Turn.Blocks
}

// LatestExchange returns the most recently recorded exchange, or nil.
func (s *SessionState) LatestExchange() *entity.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Exchanges) == 0 {
		return nil
	}
	return s.Exchanges[len(s.Exchanges)-1]
}

// MarkExchange flips the marked flag on a cached exchange so the next
// assembled window sees the new pin without a reload.
func (s *SessionState) MarkExchange(exchangeId uuid.UUID, marked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ex := range s.Exchanges {
		if ex.Id == exchangeId {
			ex.Marked = marked
			return
		}
	}
}

// Runner produces the event stream for one query. Implementations
// capture their own model, tools and retrieval wiring.
type Runner interface {
	Run(ctx context.Context, query string, window history.Window) (stream.Stream, error)
}

// Store persists completed exchanges and replays a session's history.
type Store interface {
	SaveExchange(ctx context.Context, exchange *entity.Exchange) error
	LoadExchanges(ctx context.Context, sessionId uuid.UUID) ([]*entity.Exchange, error)
}

// Controller drives the turn lifecycle: Submit queues a query, Advance
// executes it to completion and guarantees the exchange is persisted
// exactly once, streamed-to-the-end or not.
type Controller struct {
	store  Store
	runner Runner

	// OnRender, when set, is invoked after every event with the
	// freshly re-aggregated partial transcript. The block slice is a
	// snapshot; the callback may hold it past the next event.
	OnRender func(state *SessionState, status Status, blocks []render.Block)
}

func NewController(store Store, runner Runner) *Controller {
	return &Controller{store: store, runner: runner}
}

// LoadSession replays a session's persisted exchanges and returns a
// state ready to accept a query.
func (c *Controller) LoadSession(ctx context.Context, sessionId, userId uuid.UUID, flags history.Flags) (*SessionState, error) {
	exchanges, err := c.store.LoadExchanges(ctx, sessionId)
	if err != nil {
		return nil, fmt.Errorf("turn: load session %s: %w", sessionId, err)
	}
	return &SessionState{
		SessionId: sessionId,
		UserId:    userId,
		Flags:     flags,
		Exchanges: exchanges,
		Turn:      &Turn{Status: StatusIdle},
	}, nil
}

// Submit queues a query on an idle session and returns the single-use
// token that authorizes its execution.
func (c *Controller) Submit(state *SessionState, query string) (string, error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.Turn == nil {
		state.Turn = &Turn{Status: StatusIdle}
	}
	if state.Turn.Status == StatusQueued || state.Turn.Status == StatusStreaming {
		return "", ErrTurnInFlight
	}

	token := uuid.NewString()
	state.Turn = &Turn{
		Query:  query,
		Status: StatusQueued,
		token:  token,
	}
	return token, nil
}

// Advance executes the queued turn: it pulls events until the stream
// is exhausted, re-rendering after each one. Whatever happens
// mid-stream, the turn ends Done with its exchange persisted once.
// A stream failure is surfaced both as the returned error and as a
// trailing notice inside the transcript itself, so the partial answer
// survives in history.
func (c *Controller) Advance(ctx context.Context, state *SessionState, token string) error {
	// Consuming the token and flipping to streaming happens under the
	// state lock, so of two racing polls only one ever runs the turn.
	state.mu.Lock()
	t := state.Turn
	if t == nil || t.Status != StatusQueued {
		state.mu.Unlock()
		return ErrNoQueuedTurn
	}
	if token == "" || token != t.token {
		state.mu.Unlock()
		return ErrStaleToken
	}
	t.token = ""
	t.Status = StatusStreaming
	window := history.Assemble(state.Exchanges, state.Flags)
	state.mu.Unlock()

	var runErr error
	defer func() {
		c.finalize(ctx, state, t, runErr)
	}()

	s, err := c.runner.Run(ctx, t.Query, window)
	if err != nil {
		runErr = fmt.Errorf("turn: start run: %w", err)
		return runErr
	}

	for {
		ev, err := s.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			runErr = fmt.Errorf("turn: mid-stream: %w", err)
			return runErr
		}
		state.mu.Lock()
		t.Events = append(t.Events, ev)
		t.Blocks = render.Aggregate(t.Events)
		blocks := t.Blocks
		state.mu.Unlock()
		if c.OnRender != nil {
			c.OnRender(state, StatusStreaming, blocks)
		}
	}
}

// finalize closes the turn out. It runs exactly once per Advance and
// never skips persistence: a truncated stream still leaves a record of
// the query and everything received before the failure.
func (c *Controller) finalize(ctx context.Context, state *SessionState, t *Turn, runErr error) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if runErr != nil {
		t.Events = append(t.Events, stream.TextDelta{
			Text: fmt.Sprintf("\n\nError: %s", runErr),
		})
	}
	t.Blocks = render.Aggregate(t.Events)
	t.Status = StatusDone

	rawLog, err := stream.EncodeLog(t.Events)
	if err != nil {
		// EncodeLog only fails on an event type the codec does not
		// know, which cannot come out of a Stream; persist what we can.
		rawLog = ""
	}

	exchange := &entity.Exchange{
		Id:          uuid.New(),
		SessionId:   state.SessionId,
		UserText:    t.Query,
		RawEventLog: rawLog,
		Timestamp:   time.Now(),
	}
	if err := c.store.SaveExchange(ctx, exchange); err != nil {
		// The turn still ends; the next Advance must not re-run it.
		state.Exchanges = append(state.Exchanges, exchange)
		return
	}

	if reloaded, err := c.store.LoadExchanges(ctx, state.SessionId); err == nil {
		state.Exchanges = reloaded
	} else {
		state.Exchanges = append(state.Exchanges, exchange)
	}
}
