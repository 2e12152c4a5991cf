package llm

import (
	"context"
	"io"
)

// Stream is a finite, non-restartable sequence of completion events.
type Stream interface {
	// Recv returns the next event, or io.EOF once the terminal event was read.
	Recv() (Event, error)
	// Close abandons the stream and releases its connection.
	Close() error
}

// Streamer starts streaming completions.
type Streamer interface {
	Stream(ctx context.Context, req CompletionRequest) (Stream, error)
}

type channelStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	events <-chan Event
	ended  bool
}

// emitFunc delivers one event to the consumer. It reports false once the
// stream context is done and the event was not delivered.
type emitFunc func(Event) bool

// newEventStream runs produce in its own goroutine. produce must end the
// stream by returning: nil after emitting EventDone, or an error, which is
// delivered as the single EventError.
func newEventStream(ctx context.Context, produce func(ctx context.Context, emit emitFunc) error) Stream {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Event, 16)
	emit := func(ev Event) bool {
		select {
		case ch <- ev:
			return true
		case <-streamCtx.Done():
			return false
		}
	}
	go func() {
		defer close(ch)
		if err := produce(streamCtx, emit); err != nil {
			emit(Event{Type: EventError, Err: err})
		}
	}()
	return &channelStream{ctx: streamCtx, cancel: cancel, events: ch}
}

func (s *channelStream) Recv() (Event, error) {
	if s.ended {
		return Event{}, io.EOF
	}

	// Non-blocking drain: consume any buffered event before checking ctx.Done().
	// This keeps a ready EventDone from being shadowed by a concurrent cancel.
	select {
	case event, ok := <-s.events:
		return s.deliver(event, ok)
	default:
	}

	select {
	case <-s.ctx.Done():
		s.ended = true
		return Event{Type: EventError, Err: &TransportError{Op: "stream aborted", Err: s.ctx.Err()}}, nil
	case event, ok := <-s.events:
		return s.deliver(event, ok)
	}
}

func (s *channelStream) deliver(event Event, ok bool) (Event, error) {
	if !ok {
		s.ended = true
		// The producer gave up on emit because the context ended first.
		if err := s.ctx.Err(); err != nil {
			return Event{Type: EventError, Err: &TransportError{Op: "stream aborted", Err: err}}, nil
		}
		return Event{}, io.EOF
	}
	if event.Type == EventDone || event.Type == EventError {
		s.ended = true
		s.cancel()
	}
	return event, nil
}

func (s *channelStream) Close() error {
	s.cancel()
	return nil
}
