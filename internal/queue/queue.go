// Package queue implements the priority admission queue that caps the
// number of concurrently running runs.
//
// Ordering is strict priority (higher first) with FIFO tiebreak by enqueue
// time. Admission waiters are woken by completions, not by polling.
package queue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Item is a queued run awaiting admission.
type Item struct {
	RunID      string
	SessionID  string
	Priority   int
	EnqueuedAt time.Time

	seq uint64
}

// Status is a point-in-time snapshot of queue occupancy.
type Status struct {
	Queued   int `json:"queued"`
	Running  int `json:"running"`
	Capacity int `json:"capacity"`
}

// Queue holds queued items and the running set.
type Queue struct {
	mu            sync.Mutex
	items         []*Item
	running       map[string]struct{}
	maxConcurrent int
	nextSeq       uint64

	// closed and replaced to broadcast; admission waiters block on it.
	wake chan struct{}
}

// New creates a queue with the given global running cap.
func New(maxConcurrent int) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Queue{
		running:       make(map[string]struct{}),
		maxConcurrent: maxConcurrent,
		wake:          make(chan struct{}),
	}
}

// Enqueue inserts a run and returns its 1-based queue position.
// A run appears in the queue at most once; re-enqueueing is a no-op that
// returns the existing position.
func (q *Queue) Enqueue(runID, sessionID string, priority int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if pos := q.positionLocked(runID); pos > 0 {
		return pos
	}

	q.nextSeq++
	q.items = append(q.items, &Item{
		RunID:      runID,
		SessionID:  sessionID,
		Priority:   priority,
		EnqueuedAt: time.Now(),
		seq:        q.nextSeq,
	})
	sort.SliceStable(q.items, func(i, j int) bool {
		a, b := q.items[i], q.items[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
			return a.EnqueuedAt.Before(b.EnqueuedAt)
		}
		return a.seq < b.seq
	})

	q.broadcastLocked()
	return q.positionLocked(runID)
}

// Dequeue removes and returns the head of the queue if capacity allows,
// moving it to the running set. Returns false when the queue is empty or
// the cap is reached.
func (q *Queue) Dequeue() (*Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dequeueLocked()
}

func (q *Queue) dequeueLocked() (*Item, bool) {
	if len(q.items) == 0 || len(q.running) >= q.maxConcurrent {
		return nil, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	q.running[head.RunID] = struct{}{}
	return head, true
}

// Admit blocks until runID reaches the head of the queue and a running
// slot is free, then moves it to the running set. It returns the context's
// error if ctx fires first, or ErrRemoved if the run was removed while
// waiting.
func (q *Queue) Admit(ctx context.Context, runID string) error {
	q.mu.Lock()
	for {
		if _, ok := q.running[runID]; ok {
			q.mu.Unlock()
			return nil
		}
		pos := q.positionLocked(runID)
		if pos == 0 {
			q.mu.Unlock()
			return ErrRemoved
		}
		if pos == 1 && len(q.running) < q.maxConcurrent {
			q.items = q.items[1:]
			q.running[runID] = struct{}{}
			q.broadcastLocked()
			q.mu.Unlock()
			return nil
		}
		wait := q.wake
		q.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
		q.mu.Lock()
	}
}

// Complete removes runID from the running set, freeing a slot.
func (q *Queue) Complete(runID string) {
	q.mu.Lock()
	if _, ok := q.running[runID]; ok {
		delete(q.running, runID)
		q.broadcastLocked()
	}
	q.mu.Unlock()
}

// Remove deletes runID from the queued items, reporting whether it was
// present. Running runs are not affected.
func (q *Queue) Remove(runID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.RunID == runID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.broadcastLocked()
			return true
		}
	}
	return false
}

// Position returns the 1-based queue position of runID, or 0 if absent.
func (q *Queue) Position(runID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.positionLocked(runID)
}

func (q *Queue) positionLocked(runID string) int {
	for i, item := range q.items {
		if item.RunID == runID {
			return i + 1
		}
	}
	return 0
}

// IsRunning reports whether runID holds a running slot.
func (q *Queue) IsRunning(runID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.running[runID]
	return ok
}

// IsQueued reports whether runID is awaiting admission.
func (q *Queue) IsQueued(runID string) bool {
	return q.Position(runID) > 0
}

// Status returns current queued/running counts and the cap.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Queued:   len(q.items),
		Running:  len(q.running),
		Capacity: q.maxConcurrent,
	}
}

// Snapshot returns the queued items in admission order.
func (q *Queue) Snapshot() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.items))
	for i, item := range q.items {
		out[i] = *item
	}
	return out
}

func (q *Queue) broadcastLocked() {
	close(q.wake)
	q.wake = make(chan struct{})
}
