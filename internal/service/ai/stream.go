package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// EventType classifies stream events.
type EventType string

const (
	// EventDelta carries one text fragment.
	EventDelta EventType = "delta"
	// EventReset tells the consumer to drop fragments received so far; the
	// attempt that produced them failed and is about to be retried.
	EventReset EventType = "reset"
	// EventRetry announces the wait before the next attempt.
	EventRetry EventType = "retry"
	// EventDone is the last event of a successful reply.
	EventDone EventType = "done"
)

// Event is one item of a reply stream.
type Event struct {
	Type    EventType
	Text    string
	Attempt int
	Delay   time.Duration

	err error
}

// Stream is a lazy, non-restartable sequence of reply events.
type Stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	events <-chan Event
}

func newStream(ctx context.Context, run func(context.Context, chan<- Event) error) *Stream {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		if err := run(streamCtx, ch); err != nil {
			// Buffered slot may be full; the consumer might also be gone.
			select {
			case ch <- Event{err: err}:
			case <-streamCtx.Done():
			}
		}
	}()
	return &Stream{ctx: streamCtx, cancel: cancel, events: ch}
}

// Recv returns the next event, the terminal error, or io.EOF once the stream is drained.
func (s *Stream) Recv() (Event, error) {
	// Drain buffered events before honoring cancellation so EventDone is not lost.
	select {
	case event, ok := <-s.events:
		return unpack(event, ok)
	default:
	}

	select {
	case <-s.ctx.Done():
		return Event{}, s.ctx.Err()
	case event, ok := <-s.events:
		return unpack(event, ok)
	}
}

// Close cancels the upstream call if it is still running.
func (s *Stream) Close() error {
	s.cancel()
	return nil
}

func unpack(event Event, ok bool) (Event, error) {
	if !ok {
		return Event{}, io.EOF
	}
	if event.err != nil {
		return Event{}, event.err
	}
	return event, nil
}

func send(ctx context.Context, ch chan<- Event, event Event) error {
	select {
	case ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Collect drains the stream and returns the reply text, honoring reset events.
func Collect(stream *Stream) (string, error) {
	defer stream.Close()

	var builder strings.Builder
	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return builder.String(), nil
		}
		if err != nil {
			return builder.String(), err
		}

		switch event.Type {
		case EventDelta:
			builder.WriteString(event.Text)
		case EventReset:
			builder.Reset()
		}
	}
}
