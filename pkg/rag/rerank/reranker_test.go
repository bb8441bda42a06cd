package rerank

import (
	"context"
	"fmt"
	"testing"

	"agentic-chat-be/pkg/llm"
	"agentic-chat-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJudge replies with canned scores in call order and counts calls.
type fakeJudge struct {
	replies []string
	errs    []error
	calls   int
}

func (f *fakeJudge) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "<score>0.5</score>", nil
}

func (f *fakeJudge) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return f.Generate(ctx, "", opts...)
}

func docs(n int) []*store.Document {
	out := make([]*store.Document, n)
	for i := range out {
		out[i] = &store.Document{ID: fmt.Sprintf("doc-%d", i), Content: fmt.Sprintf("content %d", i)}
	}
	return out
}

func threshold(v float64) *float64 { return &v }

func TestNewValidation(t *testing.T) {
	judge := &fakeJudge{}

	_, err := New(nil, Config{})
	assert.Error(t, err)

	_, err = New(judge, Config{TopN: -1})
	assert.Error(t, err)

	_, err = New(judge, Config{CollectedNumber: -3, ScoreThreshold: threshold(0.5)})
	assert.Error(t, err)

	_, err = New(judge, Config{ScoreThreshold: threshold(1.5)})
	assert.Error(t, err)

	_, err = New(judge, Config{CollectedNumber: 3})
	assert.Error(t, err, "collected_number without score_threshold must be rejected")

	_, err = New(judge, Config{TopN: 2, ScoreThreshold: threshold(0.7), CollectedNumber: 3})
	assert.NoError(t, err)
}

func TestRerankNoThresholdKeepsAllSorted(t *testing.T) {
	judge := &fakeJudge{replies: []string{"<score>0.9</score>", "<score>0.3</score>", "<score>0.6</score>"}}
	r, err := New(judge, Config{})
	require.NoError(t, err)

	input := docs(3)
	got := r.Rerank(context.Background(), "query", input)

	require.Len(t, got, 3)
	assert.Equal(t, "doc-0", got[0].ID)
	assert.Equal(t, "doc-2", got[1].ID)
	assert.Equal(t, "doc-1", got[2].ID)
	assert.Equal(t, 3, judge.calls)
}

func TestRerankTopNTruncates(t *testing.T) {
	judge := &fakeJudge{replies: []string{"<score>0.9</score>", "<score>0.3</score>", "<score>0.6</score>"}}
	r, err := New(judge, Config{TopN: 2})
	require.NoError(t, err)

	got := r.Rerank(context.Background(), "query", docs(3))

	require.Len(t, got, 2)
	assert.Equal(t, "doc-0", got[0].ID)
	assert.Equal(t, "doc-2", got[1].ID)
}

func TestRerankEarlyExitStopsJudging(t *testing.T) {
	// 5 documents, threshold 0.7, collect 3: the first four score
	// 0.8, 0.5, 0.9, 0.75 so the third qualifier is reached on call 4
	// and doc-4 must never be judged.
	judge := &fakeJudge{replies: []string{
		"<score>0.8</score>", "<score>0.5</score>", "<score>0.9</score>", "<score>0.75</score>", "<score>0.99</score>",
	}}
	r, err := New(judge, Config{ScoreThreshold: threshold(0.7), CollectedNumber: 3})
	require.NoError(t, err)

	got := r.Rerank(context.Background(), "query", docs(5))

	require.Len(t, got, 3)
	assert.Equal(t, 4, judge.calls, "scoring must stop once enough documents qualify")
	assert.Equal(t, "doc-2", got[0].ID)
	assert.Equal(t, "doc-0", got[1].ID)
	assert.Equal(t, "doc-3", got[2].ID)
}

func TestRerankThresholdDropsLowScores(t *testing.T) {
	judge := &fakeJudge{replies: []string{"<score>0.2</score>", "<score>0.8</score>"}}
	r, err := New(judge, Config{ScoreThreshold: threshold(0.5)})
	require.NoError(t, err)

	got := r.Rerank(context.Background(), "query", docs(2))

	require.Len(t, got, 1)
	assert.Equal(t, "doc-1", got[0].ID)
}

func TestJudgeParseFailurePolicies(t *testing.T) {
	t.Run("no threshold keeps document at zero", func(t *testing.T) {
		judge := &fakeJudge{replies: []string{"I cannot say"}}
		r, err := New(judge, Config{})
		require.NoError(t, err)

		results := r.Judge(context.Background(), "q", docs(1))

		require.Len(t, results, 1)
		assert.Equal(t, OutcomeParseFailed, results[0].Outcome)
		assert.Equal(t, 0.0, results[0].Score)
	})

	t.Run("positive threshold drops unscorable document", func(t *testing.T) {
		judge := &fakeJudge{replies: []string{"I cannot say"}}
		r, err := New(judge, Config{ScoreThreshold: threshold(0.5)})
		require.NoError(t, err)

		results := r.Judge(context.Background(), "q", docs(1))
		assert.Empty(t, results)
	})
}

func TestJudgeErrorIsFailOpen(t *testing.T) {
	judge := &fakeJudge{
		replies: []string{"", "<score>0.9</score>"},
		errs:    []error{fmt.Errorf("connection refused"), nil},
	}
	r, err := New(judge, Config{ScoreThreshold: threshold(0.5)})
	require.NoError(t, err)

	results := r.Judge(context.Background(), "q", docs(2))

	require.Len(t, results, 2)
	assert.Equal(t, OutcomeJudgeError, results[0].Outcome)
	assert.Equal(t, 0.0, results[0].Score)
	assert.Equal(t, OutcomeScored, results[1].Outcome)
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  float64
		ok    bool
	}{
		{name: "tagged", reply: "sure <score>0.85</score>", want: 0.85, ok: true},
		{name: "bare number fallback", reply: "0.4", want: 0.4, ok: true},
		{name: "clamped above one", reply: "<score>7.5</score>", want: 1.0, ok: true},
		{name: "no number", reply: "highly relevant", want: 0, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseScore(tt.reply)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("score = %v, want %v", got, tt.want)
			}
		})
	}
}
