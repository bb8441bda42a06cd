package history

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic-chat-be/internal/entity"
	"agentic-chat-be/pkg/stream"
)

func exchangeWith(userText, answer string, marked bool) *entity.Exchange {
	log, err := stream.EncodeLog([]stream.Event{
		stream.TextDelta{Text: answer},
		stream.Completed{Content: answer},
	})
	if err != nil {
		panic(err)
	}
	return &entity.Exchange{
		UserText:    userText,
		RawEventLog: log,
		Marked:      marked,
	}
}

func TestAssembleMarkedIgnoresWindow(t *testing.T) {
	exchanges := []*entity.Exchange{
		exchangeWith("q1", "a1", true),
		exchangeWith("q2", "a2", false),
		exchangeWith("q3", "a3", true),
		exchangeWith("q4", "a4", false),
	}

	w := Assemble(exchanges, Flags{UseMarked: true, UseHistory: true, HistoryLength: 1})

	// Marked context includes every pinned exchange regardless of the
	// sliding window; history only the most recent one.
	assert.Contains(t, w.MarkedText, "User: q1\nAssistant: a1\n---\n")
	assert.Contains(t, w.MarkedText, "User: q3\nAssistant: a3\n---\n")
	assert.NotContains(t, w.MarkedText, "q2")
	assert.Equal(t, "User: q4\nAssistant: a4\n\n", w.HistoryText)
}

func TestAssembleFlagsOff(t *testing.T) {
	exchanges := []*entity.Exchange{exchangeWith("q", "a", true)}

	w := Assemble(exchanges, Flags{})

	assert.Empty(t, w.MarkedText)
	assert.Empty(t, w.HistoryText)
}

func TestAssembleHistoryWindow(t *testing.T) {
	tests := []struct {
		name     string
		flags    Flags
		expected []string
		excluded []string
	}{
		{
			name:     "last two",
			flags:    Flags{UseHistory: true, HistoryLength: 2},
			expected: []string{"q2", "q3"},
			excluded: []string{"q1"},
		},
		{
			name:     "full history overrides length",
			flags:    Flags{UseHistory: true, UseFullHistory: true, HistoryLength: 1},
			expected: []string{"q1", "q2", "q3"},
		},
		{
			name:     "window larger than history",
			flags:    Flags{UseHistory: true, HistoryLength: 10},
			expected: []string{"q1", "q2", "q3"},
		},
	}

	exchanges := []*entity.Exchange{
		exchangeWith("q1", "a1", false),
		exchangeWith("q2", "a2", false),
		exchangeWith("q3", "a3", false),
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := Assemble(exchanges, tc.flags)
			for _, want := range tc.expected {
				assert.Contains(t, w.HistoryText, want)
			}
			for _, unwanted := range tc.excluded {
				assert.NotContains(t, w.HistoryText, unwanted)
			}
		})
	}
}

func TestAssembleSkipsContentlessExchanges(t *testing.T) {
	// A crashed turn persists a log whose completion carries no content.
	crashed := &entity.Exchange{UserText: "lost", RawEventLog: `{"event":"RunCompleted","content":""}`, Marked: true}
	exchanges := []*entity.Exchange{
		crashed,
		exchangeWith("ok", "fine", true),
	}

	w := Assemble(exchanges, Flags{UseMarked: true, UseHistory: true, UseFullHistory: true})

	assert.NotContains(t, w.MarkedText, "lost")
	assert.NotContains(t, w.HistoryText, "lost")
	assert.Contains(t, w.MarkedText, "ok")
}

func TestExtractContentLastCompletionWins(t *testing.T) {
	log := strings.Join([]string{
		`{"event":"RunContent","content":"partial"}`,
		`not json at all`,
		`{"event":"RunCompleted","content":"first"}`,
		`{"event":"RunCompleted","content":"final"}`,
	}, "\n")

	assert.Equal(t, "final", ExtractContent(log))
}

func TestExtractContentEmptyLog(t *testing.T) {
	assert.Equal(t, "", ExtractContent(""))
	assert.Equal(t, "", ExtractContent(`{"event":"RunContent","content":"never finished"}`))
}

func TestExtractMetricsRoundTrip(t *testing.T) {
	log, err := stream.EncodeLog([]stream.Event{
		stream.Completed{Content: "done", Metrics: map[string]interface{}{"input_tokens": float64(12)}},
	})
	require.NoError(t, err)

	metrics := ExtractMetrics(log)
	require.NotNil(t, metrics)
	assert.Equal(t, float64(12), metrics["input_tokens"])

	assert.Nil(t, ExtractMetrics(""))
}
