package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/maestro-agents/maestro/pkg/models"
)

func ev(i int) models.AgentEvent {
	return models.AgentEvent{Type: models.EventModelDelta, RunID: fmt.Sprintf("r%d", i)}
}

func TestEmitNextOrder(t *testing.T) {
	s := New(10)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Emit(ctx, ev(i)); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	for i := 0; i < 5; i++ {
		got, err := s.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got.RunID != fmt.Sprintf("r%d", i) {
			t.Errorf("event %d = %s, order not preserved", i, got.RunID)
		}
	}
}

func TestNextAfterCloseDrainsThenDone(t *testing.T) {
	s := New(10)
	ctx := context.Background()
	s.Emit(ctx, ev(0))
	s.Emit(ctx, ev(1))
	s.Close()

	if _, err := s.Next(ctx); err != nil {
		t.Fatalf("buffered event should survive Close: %v", err)
	}
	if _, err := s.Next(ctx); err != nil {
		t.Fatalf("buffered event should survive Close: %v", err)
	}
	if _, err := s.Next(ctx); !errors.Is(err, ErrDone) {
		t.Errorf("err = %v, want ErrDone", err)
	}
}

func TestEmitAfterClose(t *testing.T) {
	s := New(10)
	s.Close()
	s.Close() // idempotent
	if err := s.Emit(context.Background(), ev(0)); !errors.Is(err, ErrClosed) {
		t.Errorf("Emit after Close = %v, want ErrClosed", err)
	}
}

func TestFailSurfacesAfterDrain(t *testing.T) {
	s := New(10)
	ctx := context.Background()
	s.Emit(ctx, ev(0))
	boom := errors.New("model exploded")
	s.Fail(boom)

	if _, err := s.Next(ctx); err != nil {
		t.Fatalf("buffered event should be delivered before the failure: %v", err)
	}
	if _, err := s.Next(ctx); !errors.Is(err, boom) {
		t.Errorf("err = %v, want stored failure", err)
	}
}

func TestBackpressureBlocksProducer(t *testing.T) {
	s := New(4)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := s.Emit(ctx, ev(i)); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- s.Emit(ctx, ev(4))
	}()

	select {
	case err := <-blocked:
		t.Fatalf("Emit should block at capacity, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	// Draining one is not enough: the producer resumes only below the
	// low-water mark (capacity/2).
	if _, err := s.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	select {
	case <-blocked:
		t.Fatal("Emit resumed above the low-water mark")
	case <-time.After(50 * time.Millisecond):
	}

	for s.Len() >= 2 {
		if _, err := s.Next(ctx); err != nil {
			t.Fatalf("Next: %v", err)
		}
	}
	select {
	case err := <-blocked:
		if err != nil {
			t.Fatalf("resumed Emit: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Emit did not resume below low-water mark")
	}
}

func TestEmitRespectsContext(t *testing.T) {
	s := New(1)
	ctx := context.Background()
	s.Emit(ctx, ev(0))

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- s.Emit(cctx, ev(1))
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Emit ignored context cancellation")
	}
}

func TestChannelDeliversAllThenCloses(t *testing.T) {
	s := New(10)
	ctx := context.Background()
	go func() {
		for i := 0; i < 20; i++ {
			s.Emit(ctx, ev(i))
		}
		s.Close()
	}()

	count := 0
	for range s.Channel(ctx) {
		count++
	}
	if count != 20 {
		t.Errorf("received %d events, want 20", count)
	}
}

func TestNoEventLossUnderConcurrency(t *testing.T) {
	s := New(8)
	ctx := context.Background()
	const total = 500

	go func() {
		for i := 0; i < total; i++ {
			if err := s.Emit(ctx, ev(i)); err != nil {
				t.Errorf("Emit: %v", err)
				return
			}
		}
		s.Close()
	}()

	seen := 0
	for {
		got, err := s.Next(ctx)
		if errors.Is(err, ErrDone) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got.RunID != fmt.Sprintf("r%d", seen) {
			t.Fatalf("event %d out of order: %s", seen, got.RunID)
		}
		seen++
	}
	if seen != total {
		t.Errorf("received %d events, want %d", seen, total)
	}
}
