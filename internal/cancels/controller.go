// Package cancels provides per-run one-shot cancellation signals.
//
// Every blocking primitive in the orchestrator takes a run's cancel handle
// (directly or through a bound context) and returns ErrCancelled promptly
// when it fires.
package cancels

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCancelled is returned by cancel-aware operations once a run's signal
// has fired. Match with errors.Is.
var ErrCancelled = errors.New("run cancelled")

// Handle is a one-shot cancel signal for a single run.
type Handle struct {
	mu     sync.Mutex
	done   chan struct{}
	reason string
	fired  bool
}

// Done returns a channel closed when the handle is cancelled.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel fires the signal. Subsequent calls are no-ops; the first reason
// wins.
func (h *Handle) Cancel(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fired {
		return
	}
	h.fired = true
	h.reason = reason
	close(h.done)
}

// Cancelled reports whether the signal has fired.
func (h *Handle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fired
}

// Reason returns the reason recorded by the first Cancel call.
func (h *Handle) Reason() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reason
}

// Err returns nil until the signal fires, then an ErrCancelled wrapping the
// reason.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.fired {
		return nil
	}
	if h.reason == "" {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %s", ErrCancelled, h.reason)
}

// Bind derives a context that is cancelled when either the parent or the
// handle fires. The returned stop function releases the watcher goroutine
// and must be called.
func (h *Handle) Bind(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	stopped := make(chan struct{})
	go func() {
		select {
		case <-h.done:
			cancel(h.Err())
		case <-ctx.Done():
		case <-stopped:
		}
	}()
	return ctx, func() {
		close(stopped)
		cancel(nil)
	}
}

// Controller owns the cancel handles for all live runs.
type Controller struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewController creates an empty cancel controller.
func NewController() *Controller {
	return &Controller{handles: make(map[string]*Handle)}
}

// Create registers a fresh handle for runID, replacing any prior one.
func (c *Controller) Create(runID string) *Handle {
	h := &Handle{done: make(chan struct{})}
	c.mu.Lock()
	c.handles[runID] = h
	c.mu.Unlock()
	return h
}

// Cancel fires the signal for runID. Cancelling an unknown or already
// cancelled run is a no-op.
func (c *Controller) Cancel(runID, reason string) {
	c.mu.Lock()
	h := c.handles[runID]
	c.mu.Unlock()
	if h != nil {
		h.Cancel(reason)
	}
}

// IsCancelled reports whether runID's signal has fired. Unknown runs
// (including cleaned-up ones) report false.
func (c *Controller) IsCancelled(runID string) bool {
	c.mu.Lock()
	h := c.handles[runID]
	c.mu.Unlock()
	return h != nil && h.Cancelled()
}

// Check returns ErrCancelled if runID's signal has fired, nil otherwise.
func (c *Controller) Check(runID string) error {
	c.mu.Lock()
	h := c.handles[runID]
	c.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.Err()
}

// Get returns the live handle for runID, if any.
func (c *Controller) Get(runID string) (*Handle, bool) {
	c.mu.Lock()
	h, ok := c.handles[runID]
	c.mu.Unlock()
	return h, ok
}

// Cleanup discards the handle for runID.
func (c *Controller) Cleanup(runID string) {
	c.mu.Lock()
	delete(c.handles, runID)
	c.mu.Unlock()
}
