package stream

import (
	"context"
	"io"
)

// Stream yields events one at a time. Each Next call is a suspension
// point: the caller's poll loop regains control between events so a
// partial transcript can be re-rendered before the next pull.
// Next returns io.EOF once the underlying run is exhausted.
type Stream interface {
	Next(ctx context.Context) (Event, error)
}

type sliceStream struct {
	events []Event
	pos    int
}

// FromSlice wraps an already materialized event sequence as a Stream.
func FromSlice(events []Event) Stream {
	return &sliceStream{events: events}
}

func (s *sliceStream) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// Func adapts a pull function to the Stream interface. Useful for
// backends that produce events lazily and for tests that fail mid-run.
type Func func(ctx context.Context) (Event, error)

func (f Func) Next(ctx context.Context) (Event, error) {
	return f(ctx)
}
