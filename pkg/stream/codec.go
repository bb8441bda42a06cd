package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Wire discriminator values. This exact shape is the contract between
// the aggregator, the persistence layer and history replay: one JSON
// object per line, append-only.
const (
	wireRunContent        = "RunContent"
	wireToolCallStarted   = "ToolCallStarted"
	wireToolCallCompleted = "ToolCallCompleted"
	wireRunCompleted      = "RunCompleted"
)

type wireTool struct {
	ToolName string `json:"tool_name,omitempty"`
	ToolArgs string `json:"tool_args,omitempty"`
	Result   string `json:"result,omitempty"`
}

type wireEvent struct {
	Event   string                 `json:"event"`
	Content string                 `json:"content,omitempty"`
	Tool    *wireTool              `json:"tool,omitempty"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

// Encode serializes a single event to its wire line (no trailing newline).
func Encode(ev Event) ([]byte, error) {
	var w wireEvent
	switch e := ev.(type) {
	case TextDelta:
		w = wireEvent{Event: wireRunContent, Content: e.Text}
	case ToolStarted:
		w = wireEvent{Event: wireToolCallStarted, Tool: &wireTool{ToolName: e.Name, ToolArgs: e.Args}}
	case ToolCompleted:
		w = wireEvent{Event: wireToolCallCompleted, Tool: &wireTool{ToolName: e.Name, Result: e.Result}}
	case Completed:
		w = wireEvent{Event: wireRunCompleted, Content: e.Content, Metrics: e.Metrics}
	default:
		return nil, fmt.Errorf("stream: cannot encode event of type %T", ev)
	}
	return json.Marshal(w)
}

// Decode parses a single wire line back into a typed event.
// Unknown discriminators are rejected explicitly rather than silently
// ignored, so a schema drift in the model backend surfaces immediately.
func Decode(line []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, fmt.Errorf("stream: malformed event line: %w", err)
	}

	switch w.Event {
	case wireRunContent:
		return TextDelta{Text: w.Content}, nil
	case wireToolCallStarted:
		var name, args string
		if w.Tool != nil {
			name, args = w.Tool.ToolName, w.Tool.ToolArgs
		}
		return ToolStarted{Name: name, Args: args}, nil
	case wireToolCallCompleted:
		var name, result string
		if w.Tool != nil {
			name, result = w.Tool.ToolName, w.Tool.Result
		}
		return ToolCompleted{Name: name, Result: result}, nil
	case wireRunCompleted:
		return Completed{Content: w.Content, Metrics: w.Metrics}, nil
	default:
		return nil, fmt.Errorf("stream: unknown event discriminator %q", w.Event)
	}
}

// EncodeLog renders an ordered event sequence as a newline-delimited log,
// one event per line. The result is what gets persisted verbatim.
func EncodeLog(events []Event) (string, error) {
	var sb strings.Builder
	for _, ev := range events {
		line, err := Encode(ev)
		if err != nil {
			return "", err
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// DecodeLog parses a persisted event log. Malformed lines are skipped
// individually so one bad line never poisons the surrounding transcript.
func DecodeLog(raw string) []Event {
	var events []Event
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ev, err := Decode([]byte(line))
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events
}
