package turn

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic-chat-be/internal/entity"
	"agentic-chat-be/pkg/agent/history"
	"agentic-chat-be/pkg/agent/render"
	"agentic-chat-be/pkg/stream"
)

type fakeStore struct {
	saved   []*entity.Exchange
	saveErr error
	loadErr error
}

func (s *fakeStore) SaveExchange(_ context.Context, ex *entity.Exchange) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, ex)
	return nil
}

func (s *fakeStore) LoadExchanges(_ context.Context, sessionId uuid.UUID) ([]*entity.Exchange, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	var out []*entity.Exchange
	for _, ex := range s.saved {
		if ex.SessionId == sessionId {
			out = append(out, ex)
		}
	}
	return out, nil
}

type fakeRunner struct {
	stream  stream.Stream
	err     error
	queries []string
	windows []history.Window
}

func (r *fakeRunner) Run(_ context.Context, query string, window history.Window) (stream.Stream, error) {
	r.queries = append(r.queries, query)
	r.windows = append(r.windows, window)
	if r.err != nil {
		return nil, r.err
	}
	return r.stream, nil
}

func TestTurnLifecycle(t *testing.T) {
	store := &fakeStore{}
	runner := &fakeRunner{stream: stream.FromSlice([]stream.Event{
		stream.TextDelta{Text: "4"},
		stream.Completed{Content: "4"},
	})}
	ctrl := NewController(store, runner)

	var renders int
	ctrl.OnRender = func(_ *SessionState, _ Status, _ []render.Block) { renders++ }

	state, err := ctrl.LoadSession(context.Background(), uuid.New(), uuid.New(), history.Flags{UseHistory: true, HistoryLength: 5})
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, state.Turn.Status)

	token, err := ctrl.Submit(state, "What is 2+2?")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, state.Turn.Status)

	require.NoError(t, ctrl.Advance(context.Background(), state, token))

	assert.Equal(t, StatusDone, state.Turn.Status)
	assert.Equal(t, 2, renders)

	require.Len(t, store.saved, 1)
	ex := store.saved[0]
	assert.Equal(t, "What is 2+2?", ex.UserText)
	assert.Len(t, strings.Split(strings.TrimRight(ex.RawEventLog, "\n"), "\n"), 2)
	assert.Equal(t, "4", history.ExtractContent(ex.RawEventLog))

	// History replayed into the state, ready for the next turn.
	require.Len(t, state.Exchanges, 1)
}

func TestAdvanceMidStreamFailurePersistsOnce(t *testing.T) {
	store := &fakeStore{}
	boom := errors.New("backend gone")
	calls := 0
	runner := &fakeRunner{stream: stream.Func(func(ctx context.Context) (stream.Event, error) {
		calls++
		if calls == 1 {
			return stream.TextDelta{Text: "partial answer"}, nil
		}
		return nil, boom
	})}
	ctrl := NewController(store, runner)

	state, err := ctrl.LoadSession(context.Background(), uuid.New(), uuid.New(), history.Flags{})
	require.NoError(t, err)
	token, err := ctrl.Submit(state, "doomed")
	require.NoError(t, err)

	err = ctrl.Advance(context.Background(), state, token)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, StatusDone, state.Turn.Status)
	require.Len(t, store.saved, 1)
	assert.Contains(t, store.saved[0].RawEventLog, "partial answer")
	assert.Contains(t, store.saved[0].RawEventLog, "Error:")

	// The failed turn never completed, so it contributes no answer to
	// later context windows.
	assert.Empty(t, history.ExtractContent(store.saved[0].RawEventLog))

	// The transcript the user sees carries the failure notice.
	require.NotEmpty(t, state.Turn.Blocks)
	last := state.Turn.Blocks[len(state.Turn.Blocks)-1]
	assert.Equal(t, render.BlockText, last.Type)
	assert.Contains(t, last.Text, "backend gone")
}

func TestSubmitRejectsInFlightTurn(t *testing.T) {
	ctrl := NewController(&fakeStore{}, &fakeRunner{stream: stream.FromSlice(nil)})
	state, err := ctrl.LoadSession(context.Background(), uuid.New(), uuid.New(), history.Flags{})
	require.NoError(t, err)

	_, err = ctrl.Submit(state, "first")
	require.NoError(t, err)

	_, err = ctrl.Submit(state, "second")
	assert.ErrorIs(t, err, ErrTurnInFlight)
}

func TestAdvanceTokenIsSingleUse(t *testing.T) {
	store := &fakeStore{}
	ctrl := NewController(store, &fakeRunner{stream: stream.FromSlice([]stream.Event{
		stream.Completed{Content: "done"},
	})})
	state, err := ctrl.LoadSession(context.Background(), uuid.New(), uuid.New(), history.Flags{})
	require.NoError(t, err)

	token, err := ctrl.Submit(state, "once")
	require.NoError(t, err)

	assert.ErrorIs(t, ctrl.Advance(context.Background(), state, "bogus"), ErrStaleToken)

	require.NoError(t, ctrl.Advance(context.Background(), state, token))

	// A duplicated poll tick replaying the same token is a no-op.
	assert.ErrorIs(t, ctrl.Advance(context.Background(), state, token), ErrNoQueuedTurn)
	assert.Len(t, store.saved, 1)
}

func TestAdvanceConcurrentPollsRunOnce(t *testing.T) {
	store := &fakeStore{}
	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	runner := &fakeRunner{stream: stream.Func(func(ctx context.Context) (stream.Event, error) {
		calls++
		if calls == 1 {
			close(entered)
			<-release
			return stream.Completed{Content: "only once"}, nil
		}
		return nil, io.EOF
	})}
	ctrl := NewController(store, runner)

	state, err := ctrl.LoadSession(context.Background(), uuid.New(), uuid.New(), history.Flags{})
	require.NoError(t, err)
	token, err := ctrl.Submit(state, "race me")
	require.NoError(t, err)

	errs := make(chan error, 2)
	go func() { errs <- ctrl.Advance(context.Background(), state, token) }()
	<-entered

	// A second poll lands with the same token while the first is
	// mid-stream: it must bounce off the guard, not run the turn again.
	go func() { errs <- ctrl.Advance(context.Background(), state, token) }()
	assert.ErrorIs(t, <-errs, ErrNoQueuedTurn)

	close(release)
	require.NoError(t, <-errs)

	assert.Len(t, runner.queries, 1)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "race me", store.saved[0].UserText)
	status, _ := state.TurnView()
	assert.Equal(t, StatusDone, status)
}

func TestAdvanceRunStartFailureStillPersists(t *testing.T) {
	store := &fakeStore{}
	ctrl := NewController(store, &fakeRunner{err: errors.New("no model")})
	state, err := ctrl.LoadSession(context.Background(), uuid.New(), uuid.New(), history.Flags{})
	require.NoError(t, err)

	token, err := ctrl.Submit(state, "unlucky")
	require.NoError(t, err)
	require.Error(t, ctrl.Advance(context.Background(), state, token))

	assert.Equal(t, StatusDone, state.Turn.Status)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "unlucky", store.saved[0].UserText)
}

func TestAdvancePassesAssembledWindow(t *testing.T) {
	store := &fakeStore{}
	sessionId := uuid.New()
	prior, err := stream.EncodeLog([]stream.Event{stream.Completed{Content: "blue"}})
	require.NoError(t, err)
	store.saved = append(store.saved, &entity.Exchange{
		Id:          uuid.New(),
		SessionId:   sessionId,
		UserText:    "favorite color?",
		RawEventLog: prior,
	})

	runner := &fakeRunner{stream: stream.FromSlice([]stream.Event{stream.Completed{Content: "as I said, blue"}})}
	ctrl := NewController(store, runner)

	state, err := ctrl.LoadSession(context.Background(), sessionId, uuid.New(), history.Flags{UseHistory: true, HistoryLength: 10})
	require.NoError(t, err)

	token, err := ctrl.Submit(state, "what did I ask before?")
	require.NoError(t, err)
	require.NoError(t, ctrl.Advance(context.Background(), state, token))

	require.Len(t, runner.windows, 1)
	assert.Contains(t, runner.windows[0].HistoryText, "favorite color?")
	assert.Contains(t, runner.windows[0].HistoryText, "blue")
	assert.Len(t, state.Exchanges, 2)
}
