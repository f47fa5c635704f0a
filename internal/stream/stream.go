// Package stream implements the bounded, ordered, single-consumer event
// channel carrying a run's AgentEvents.
//
// The producer (the Runner goroutine) blocks once the buffer is saturated
// and resumes only after the consumer drains below the low-water mark
// (half the capacity). Events are never dropped.
package stream

import (
	"context"
	"errors"
	"sync"

	"github.com/maestro-agents/maestro/pkg/models"
)

var (
	// ErrClosed is returned by Emit after Close; emitting on a closed
	// stream is a programming error in the producer.
	ErrClosed = errors.New("stream: closed")

	// ErrDone signals normal end-of-stream to the consumer.
	ErrDone = errors.New("stream: done")
)

// DefaultBufferSize is the event buffer capacity when none is configured.
const DefaultBufferSize = 100

// Stream is a single-producer single-consumer event channel.
type Stream struct {
	mu        sync.Mutex
	buf       []models.AgentEvent
	capacity  int
	lowWater  int
	throttled bool
	closed    bool
	failure   error

	notFull  chan struct{}
	notEmpty chan struct{}
}

// New creates a stream with the given buffer capacity.
func New(capacity int) *Stream {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	low := capacity / 2
	if low < 1 {
		low = 1
	}
	return &Stream{
		capacity: capacity,
		lowWater: low,
		notFull:  make(chan struct{}),
		notEmpty: make(chan struct{}),
	}
}

// Emit appends an event, blocking while the buffer is saturated. The
// context aborts the wait; emission order is preserved across calls.
func (s *Stream) Emit(ctx context.Context, ev models.AgentEvent) error {
	s.mu.Lock()
	for {
		if s.closed {
			s.mu.Unlock()
			return ErrClosed
		}
		if len(s.buf) >= s.capacity {
			s.throttled = true
		}
		if !s.throttled {
			s.buf = append(s.buf, ev)
			s.broadcastNotEmptyLocked()
			s.mu.Unlock()
			return nil
		}
		wait := s.notFull
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
	}
}

// Next returns the next event in emission order. At end of stream it
// returns ErrDone, or the error stored by Fail once the buffer is drained.
func (s *Stream) Next(ctx context.Context) (models.AgentEvent, error) {
	s.mu.Lock()
	for {
		if len(s.buf) > 0 {
			ev := s.buf[0]
			s.buf = s.buf[1:]
			if s.throttled && len(s.buf) < s.lowWater {
				s.throttled = false
				s.broadcastNotFullLocked()
			}
			s.mu.Unlock()
			return ev, nil
		}
		if s.closed {
			err := s.failure
			s.mu.Unlock()
			if err != nil {
				return models.AgentEvent{}, err
			}
			return models.AgentEvent{}, ErrDone
		}
		wait := s.notEmpty
		s.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return models.AgentEvent{}, ctx.Err()
		}
		s.mu.Lock()
	}
}

// Close ends the stream. Buffered events remain readable; all waiters are
// released. Close is idempotent.
func (s *Stream) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.broadcastNotEmptyLocked()
		s.broadcastNotFullLocked()
	}
	s.mu.Unlock()
}

// Fail stores err and closes the stream; the consumer receives err after
// draining the buffer.
func (s *Stream) Fail(err error) {
	s.mu.Lock()
	if !s.closed {
		s.failure = err
		s.closed = true
		s.broadcastNotEmptyLocked()
		s.broadcastNotFullLocked()
	}
	s.mu.Unlock()
}

// Err returns the error stored by Fail, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Len returns the current buffered depth.
func (s *Stream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Capacity returns the configured buffer capacity.
func (s *Stream) Capacity() int { return s.capacity }

// Channel returns a channel that yields the remaining events and closes at
// end of stream. It consumes the stream; do not mix with Next.
func (s *Stream) Channel(ctx context.Context) <-chan models.AgentEvent {
	out := make(chan models.AgentEvent)
	go func() {
		defer close(out)
		for {
			ev, err := s.Next(ctx)
			if err != nil {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *Stream) broadcastNotEmptyLocked() {
	close(s.notEmpty)
	s.notEmpty = make(chan struct{})
}

func (s *Stream) broadcastNotFullLocked() {
	close(s.notFull)
	s.notFull = make(chan struct{})
}
