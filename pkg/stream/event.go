package stream

// Event is a sealed union of everything a model run can emit.
// Events are immutable once produced and form an ordered, append-only
// log for a single turn. The unexported marker method keeps the union
// closed so the aggregator can match exhaustively.
type Event interface {
	event()
}

// TextDelta carries an incremental piece of assistant text.
type TextDelta struct {
	Text string
}

func (TextDelta) event() {}

// ToolStarted signals that the agent began executing a tool.
type ToolStarted struct {
	Name string
	Args string
}

func (ToolStarted) event() {}

// ToolCompleted carries the result of a finished tool execution.
type ToolCompleted struct {
	Name   string
	Result string
}

func (ToolCompleted) event() {}

// Completed terminates a run. Content holds the final assembled answer
// and Metrics whatever usage data the model backend reports.
type Completed struct {
	Content string
	Metrics map[string]interface{}
}

func (Completed) event() {}

var (
	_ Event = TextDelta{}
	_ Event = ToolStarted{}
	_ Event = ToolCompleted{}
	_ Event = Completed{}
)
