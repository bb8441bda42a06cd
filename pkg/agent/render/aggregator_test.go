package render

import (
	"reflect"
	"testing"

	"agentic-chat-be/pkg/stream"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		events []stream.Event
		want   []Block
	}{
		{
			name:   "empty log",
			events: nil,
			want:   nil,
		},
		{
			name: "deltas accumulate into one text block",
			events: []stream.Event{
				stream.TextDelta{Text: "Hel"},
				stream.TextDelta{Text: "lo"},
			},
			want: []Block{{Type: BlockText, Text: "Hello"}},
		},
		{
			name: "trailing text flushed without terminal completed",
			events: []stream.Event{
				stream.TextDelta{Text: "partial "},
				stream.TextDelta{Text: "answer"},
			},
			want: []Block{{Type: BlockText, Text: "partial answer"}},
		},
		{
			name: "tool start and completion merge into one block",
			events: []stream.Event{
				stream.TextDelta{Text: "looking it up"},
				stream.ToolStarted{Name: "search_knowledge", Args: `{"q":"go"}`},
				stream.ToolCompleted{Name: "search_knowledge", Result: "found 2"},
				stream.TextDelta{Text: "here you go"},
			},
			want: []Block{
				{Type: BlockText, Text: "looking it up"},
				{Type: BlockTool, Name: "search_knowledge", Args: `{"q":"go"}`, Result: "found 2", Completed: true},
				{Type: BlockText, Text: "here you go"},
			},
		},
		{
			name: "non-matching completion still merges into the open slot",
			events: []stream.Event{
				stream.ToolStarted{Name: "search_knowledge", Args: "{}"},
				stream.ToolCompleted{Name: "other_tool", Result: "r"},
			},
			want: []Block{
				{Type: BlockTool, Name: "search_knowledge", Args: "{}", Result: "r", Completed: true},
			},
		},
		{
			name: "orphaned completion yields standalone completed block",
			events: []stream.Event{
				stream.TextDelta{Text: "hm"},
				stream.ToolCompleted{Name: "search_knowledge", Result: "late"},
			},
			want: []Block{
				{Type: BlockText, Text: "hm"},
				{Type: BlockTool, Name: "search_knowledge", Result: "late", Completed: true},
			},
		},
		{
			name: "open tool renders as incomplete placeholder",
			events: []stream.Event{
				stream.ToolStarted{Name: "search_knowledge", Args: "{}"},
			},
			want: []Block{
				{Type: BlockTool, Name: "search_knowledge", Args: "{}"},
			},
		},
		{
			name: "completed event flushes text and adds nothing",
			events: []stream.Event{
				stream.TextDelta{Text: "4"},
				stream.Completed{Content: "4", Metrics: map[string]interface{}{"tokens": 5}},
			},
			want: []Block{{Type: BlockText, Text: "4"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.events)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Aggregate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	events := []stream.Event{
		stream.TextDelta{Text: "a"},
		stream.ToolStarted{Name: "t", Args: "{}"},
		stream.ToolCompleted{Name: "t", Result: "r"},
		stream.TextDelta{Text: "b"},
		stream.Completed{Content: "ab"},
	}
	first := Aggregate(events)
	second := Aggregate(events)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated aggregation differs: %+v vs %+v", first, second)
	}
}

func TestAggregatePrefixStable(t *testing.T) {
	prefix := []stream.Event{
		stream.TextDelta{Text: "a"},
		stream.ToolStarted{Name: "t", Args: "{}"},
		stream.ToolCompleted{Name: "t", Result: "r"},
	}
	longer := append(append([]stream.Event{}, prefix...), stream.TextDelta{Text: "b"})

	short := Aggregate(prefix)
	long := Aggregate(longer)

	if len(long) < len(short) {
		t.Fatalf("longer log produced fewer blocks: %d < %d", len(long), len(short))
	}
	if !reflect.DeepEqual(long[:len(short)], short) {
		t.Errorf("block prefix changed: %+v vs %+v", long[:len(short)], short)
	}
}
