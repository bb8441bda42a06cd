package render

import (
	"strings"

	"agentic-chat-be/pkg/stream"
)

// Block kinds.
const (
	BlockText = "text"
	BlockTool = "tool"
)

// Block is a display-oriented grouping of events. Blocks are derived,
// never persisted: they are recomputed from the event log on every
// render, so the projection is restartable at any point.
type Block struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	Name      string `json:"name,omitempty"`
	Args      string `json:"args,omitempty"`
	Result    string `json:"result,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

// Aggregate folds an ordered event sequence into render blocks in a
// single left-to-right pass. Adjacent text deltas accumulate into one
// TextBlock; a ToolStarted/ToolCompleted pair merges into one ToolBlock.
// At most one tool slot is open at a time; interleaved concurrent tool
// calls are not tracked.
//
// The function is pure: running it twice on the same input, or on a
// longer log sharing the same prefix, reproduces the same block prefix.
func Aggregate(events []stream.Event) []Block {
	var blocks []Block
	var text strings.Builder
	active := -1 // index of the open tool block, -1 when none

	flushText := func() {
		if text.Len() > 0 {
			blocks = append(blocks, Block{Type: BlockText, Text: text.String()})
			text.Reset()
		}
	}

	for _, ev := range events {
		switch e := ev.(type) {
		case stream.TextDelta:
			text.WriteString(e.Text)

		case stream.ToolStarted:
			flushText()
			blocks = append(blocks, Block{Type: BlockTool, Name: e.Name, Args: e.Args})
			active = len(blocks) - 1

		case stream.ToolCompleted:
			if active >= 0 && !blocks[active].Completed {
				blocks[active].Result = e.Result
				blocks[active].Completed = true
			} else {
				// Orphaned completion: no matching start in this log,
				// e.g. streaming attached mid-tool. Render standalone.
				flushText()
				blocks = append(blocks, Block{Type: BlockTool, Name: e.Name, Result: e.Result, Completed: true})
			}
			active = -1

		case stream.Completed:
			flushText()
		}
	}

	flushText()
	return blocks
}
