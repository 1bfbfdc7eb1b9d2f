package api

import (
	"context"
	"sync"
	"sync/atomic"
)

// ChannelSink buffers events on a bounded channel for a single draining
// consumer (typically a transport handler). Emit never blocks: when the
// buffer is full the event is counted as dropped instead.
type ChannelSink struct {
	ch      chan Event
	dropped atomic.Int64
}

// NewChannelSink creates a ChannelSink with the given buffer size.
// size <= 0 defaults to 256.
func NewChannelSink(size int) *ChannelSink {
	if size <= 0 {
		size = 256
	}
	return &ChannelSink{ch: make(chan Event, size)}
}

func (s *ChannelSink) Emit(ev Event) {
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Events returns the receive side of the buffer.
func (s *ChannelSink) Events() <-chan Event { return s.ch }

// Dropped returns how many events were discarded because no consumer kept up.
func (s *ChannelSink) Dropped() int64 { return s.dropped.Load() }

// CollectorSink records every emitted event in order. It is intended for
// tests and tooling that assert on the event stream.
type CollectorSink struct {
	mu     sync.Mutex
	events []Event
	waiter chan struct{}
}

// NewCollectorSink creates an empty CollectorSink.
func NewCollectorSink() *CollectorSink {
	return &CollectorSink{}
}

func (s *CollectorSink) Emit(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if s.waiter != nil {
		close(s.waiter)
		s.waiter = nil
	}
	s.mu.Unlock()
}

// Events returns a copy of everything emitted so far, in emission order.
func (s *CollectorSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Kinds returns the kind of each collected event, in order.
func (s *CollectorSink) Kinds() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]Kind, len(s.events))
	for i, ev := range s.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

// Count returns how many events of the given kind were collected.
func (s *CollectorSink) Count(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// WaitFor blocks until an event of the given kind has been collected or ctx
// expires, and returns the first matching event.
func (s *CollectorSink) WaitFor(ctx context.Context, kind Kind) (Event, error) {
	for {
		s.mu.Lock()
		for _, ev := range s.events {
			if ev.Kind == kind {
				s.mu.Unlock()
				return ev, nil
			}
		}
		if s.waiter == nil {
			s.waiter = make(chan struct{})
		}
		w := s.waiter
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-w:
		}
	}
}
