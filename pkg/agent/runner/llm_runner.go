package runner

import (
	"context"
	"fmt"
	"strings"

	"agentic-chat-be/pkg/agent/history"
	"agentic-chat-be/pkg/llm"
	"agentic-chat-be/pkg/stream"
)

const defaultSystemPrompt = "You are a helpful assistant. Answer the user's question directly and concisely."

// LLMRunner executes a turn against a chat model provider. The provider
// answers in one shot; the runner exposes the reply as an event stream
// so the turn loop and transcript rendering stay uniform across
// backends.
type LLMRunner struct {
	provider     llm.LLMProvider
	systemPrompt string
	options      []llm.Option
}

func NewLLMRunner(provider llm.LLMProvider, options ...llm.Option) *LLMRunner {
	return &LLMRunner{
		provider:     provider,
		systemPrompt: defaultSystemPrompt,
		options:      options,
	}
}

// WithSystemPrompt overrides the base system instruction.
func (r *LLMRunner) WithSystemPrompt(prompt string) *LLMRunner {
	r.systemPrompt = prompt
	return r
}

func (r *LLMRunner) Run(ctx context.Context, query string, window history.Window) (stream.Stream, error) {
	messages := []llm.Message{
		{Role: "system", Content: r.buildSystemPrompt(window)},
		{Role: "user", Content: query},
	}

	answer, err := r.provider.Chat(ctx, messages, r.options...)
	if err != nil {
		return nil, fmt.Errorf("runner: chat: %w", err)
	}

	return stream.FromSlice([]stream.Event{
		stream.TextDelta{Text: answer},
		stream.Completed{Content: answer},
	}), nil
}

func (r *LLMRunner) buildSystemPrompt(window history.Window) string {
	var sb strings.Builder
	sb.WriteString(r.systemPrompt)
	if window.MarkedText != "" {
		sb.WriteString("\n\nThe user has pinned these earlier exchanges as important context:\n")
		sb.WriteString(window.MarkedText)
	}
	if window.HistoryText != "" {
		sb.WriteString("\n\nRecent conversation:\n")
		sb.WriteString(window.HistoryText)
	}
	return sb.String()
}
