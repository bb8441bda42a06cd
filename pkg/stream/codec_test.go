package stream

import (
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		event Event
	}{
		{name: "text delta", event: TextDelta{Text: "hello"}},
		{name: "tool started", event: ToolStarted{Name: "search_knowledge", Args: `{"query":"go"}`}},
		{name: "tool completed", event: ToolCompleted{Name: "search_knowledge", Result: "3 documents"}},
		{name: "run completed", event: Completed{Content: "done", Metrics: map[string]interface{}{"tokens": float64(5)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := Encode(tt.event)
			if err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			got, err := Decode(line)
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			switch want := tt.event.(type) {
			case TextDelta:
				if got.(TextDelta) != want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			case ToolStarted:
				if got.(ToolStarted) != want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			case ToolCompleted:
				if got.(ToolCompleted) != want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			case Completed:
				g := got.(Completed)
				if g.Content != want.Content {
					t.Errorf("Content = %q, want %q", g.Content, want.Content)
				}
				if g.Metrics["tokens"] != want.Metrics["tokens"] {
					t.Errorf("Metrics = %v, want %v", g.Metrics, want.Metrics)
				}
			}
		})
	}
}

func TestDecodeRejectsUnknownDiscriminator(t *testing.T) {
	_, err := Decode([]byte(`{"event":"RunPaused","content":"x"}`))
	if err == nil {
		t.Fatal("expected error for unknown discriminator, got nil")
	}
}

func TestDecodeLogSkipsMalformedLines(t *testing.T) {
	raw := `{"event":"RunContent","content":"4"}
not json at all
{"event":"SomethingElse"}

{"event":"RunCompleted","content":"4","metrics":{"tokens":5}}
`
	events := DecodeLog(raw)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if _, ok := events[0].(TextDelta); !ok {
		t.Errorf("events[0] = %T, want TextDelta", events[0])
	}
	if _, ok := events[1].(Completed); !ok {
		t.Errorf("events[1] = %T, want Completed", events[1])
	}
}

func TestEncodeLogIsNewlineDelimited(t *testing.T) {
	raw, err := EncodeLog([]Event{TextDelta{Text: "a"}, Completed{Content: "a"}})
	if err != nil {
		t.Fatalf("EncodeLog error: %v", err)
	}
	back := DecodeLog(raw)
	if len(back) != 2 {
		t.Fatalf("round trip produced %d events, want 2", len(back))
	}
}
