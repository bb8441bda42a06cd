package history

import (
	"fmt"
	"strings"

	"agentic-chat-be/internal/entity"
	"agentic-chat-be/pkg/stream"
)

// Flags selects which prior context gets assembled for a new turn.
type Flags struct {
	UseMarked      bool
	UseHistory     bool
	UseFullHistory bool
	HistoryLength  int
}

// Window is the assembled prior-context bundle handed to the model.
// MarkedText always includes every pinned exchange; HistoryText follows
// the sliding window.
type Window struct {
	MarkedText  string
	HistoryText string
}

// Assemble builds the context window from a session's persisted
// exchanges, excluding the in-flight one. Pure and deterministic for a
// given input.
func Assemble(exchanges []*entity.Exchange, flags Flags) Window {
	var w Window

	if flags.UseMarked {
		var sb strings.Builder
		for _, ex := range exchanges {
			if !ex.Marked {
				continue
			}
			content := ExtractContent(ex.RawEventLog)
			if content == "" {
				continue
			}
			fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n---\n", ex.UserText, content)
		}
		w.MarkedText = sb.String()
	}

	if flags.UseHistory {
		source := exchanges
		if !flags.UseFullHistory && flags.HistoryLength > 0 && len(source) > flags.HistoryLength {
			source = source[len(source)-flags.HistoryLength:]
		}
		var sb strings.Builder
		for _, ex := range source {
			content := ExtractContent(ex.RawEventLog)
			if content == "" {
				continue
			}
			fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n\n", ex.UserText, content)
		}
		w.HistoryText = sb.String()
	}

	return w
}

// ExtractContent returns the final assistant answer from a raw event
// log: the content of the terminal RunCompleted line. Malformed lines
// are skipped; a log without a completion yields the empty string.
func ExtractContent(rawLog string) string {
	var content string
	for _, ev := range stream.DecodeLog(rawLog) {
		if c, ok := ev.(stream.Completed); ok {
			content = c.Content
		}
	}
	return content
}

// ExtractMetrics returns the run metrics from the terminal RunCompleted
// line, or nil when the log has none.
func ExtractMetrics(rawLog string) map[string]interface{} {
	var metrics map[string]interface{}
	for _, ev := range stream.DecodeLog(rawLog) {
		if c, ok := ev.(stream.Completed); ok {
			metrics = c.Metrics
		}
	}
	return metrics
}
