package compliance

import (
	"context"
	"errors"
	"sync/atomic"
)

const defaultSinkBuffer = 256

// ErrSinkBusy reports that the async sink's buffer was full and the emission
// was dropped.
var ErrSinkBusy = errors.New("sink buffer full")

// AsyncSink decouples sink emission from the audit path. Emit queues events on
// a buffered channel and a single background goroutine forwards them to the
// wrapped sink, so a slow sink never blocks a session mutation.
type AsyncSink struct {
	inner    Sink
	inbox    chan Event
	failures atomic.Int64
}

// NewAsyncSink wraps a sink with a buffer. A non-positive buffer size falls
// back to the default.
func NewAsyncSink(inner Sink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = defaultSinkBuffer
	}
	return &AsyncSink{
		inner: inner,
		inbox: make(chan Event, buffer),
	}
}

// Emit enqueues the event without blocking. A full buffer drops the event and
// returns ErrSinkBusy so the caller can count the loss.
func (s *AsyncSink) Emit(_ context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	default:
		return ErrSinkBusy
	}
}

// Run forwards queued events to the wrapped sink until ctx is cancelled, then
// drains whatever is still buffered before returning. Forwarding failures are
// counted, not fatal.
func (s *AsyncSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.drain(context.WithoutCancel(ctx))
			return nil
		case event := <-s.inbox:
			s.forward(ctx, event)
		}
	}
}

// Failures returns how many forwards to the wrapped sink have failed.
func (s *AsyncSink) Failures() int {
	return int(s.failures.Load())
}

func (s *AsyncSink) drain(ctx context.Context) {
	for {
		select {
		case event := <-s.inbox:
			s.forward(ctx, event)
		default:
			return
		}
	}
}

func (s *AsyncSink) forward(ctx context.Context, event Event) {
	if err := s.inner.Emit(ctx, event); err != nil {
		s.failures.Add(1)
	}
}
