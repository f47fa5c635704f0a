// Package hooks provides named lifecycle callbacks for the run lifecycle.
//
// Handlers run sequentially in registration order. A handler failure (error
// or panic) is logged and never aborts the run. Handlers must not retain
// references to mutable Runner state after returning.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maestro-agents/maestro/pkg/models"
)

// Name identifies a lifecycle hook point.
type Name string

const (
	BeforeRun            Name = "beforeRun"
	AfterContextAssembly Name = "afterContextAssembly"
	BeforeModelCall      Name = "beforeModelCall"
	AfterModelCall       Name = "afterModelCall"
	BeforeToolExecution  Name = "beforeToolExecution"
	AfterToolExecution   Name = "afterToolExecution"
	AfterRun             Name = "afterRun"
	OnError              Name = "onError"
)

// Names lists all recognized hook points.
func Names() []Name {
	return []Name{
		BeforeRun, AfterContextAssembly,
		BeforeModelCall, AfterModelCall,
		BeforeToolExecution, AfterToolExecution,
		AfterRun, OnError,
	}
}

// Context carries run details into hook handlers. Fields are populated
// according to the hook point; unrelated fields are nil.
type Context struct {
	RunID     string
	SessionID string

	Message    *models.Message
	Assembled  *models.AssembledContext
	Response   *models.ModelResponse
	ToolCall   *models.ToolCall
	ToolResult *models.ToolResult
	Result     *models.RunResult
	Err        error
}

// Handler is a lifecycle callback.
type Handler func(ctx context.Context, hc *Context) error

// Registry holds hook registrations.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty hook registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[Name][]Handler),
		logger:   logger.With("component", "hooks"),
	}
}

// Register appends a handler for the hook point.
func (r *Registry) Register(name Name, handler Handler) {
	if handler == nil {
		return
	}
	r.mu.Lock()
	r.handlers[name] = append(r.handlers[name], handler)
	r.mu.Unlock()
}

// HandlerCount returns the number of handlers registered for name.
func (r *Registry) HandlerCount(name Name) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[name])
}

// Execute invokes the handlers for name in registration order, awaiting
// each. Failures are logged and swallowed.
func (r *Registry) Execute(ctx context.Context, name Name, hc *Context) {
	r.mu.RLock()
	handlers := make([]Handler, len(r.handlers[name]))
	copy(handlers, r.handlers[name])
	r.mu.RUnlock()

	for i, handler := range handlers {
		if err := r.call(ctx, handler, hc); err != nil {
			r.logger.Warn("hook handler failed",
				"hook", string(name),
				"index", i,
				"run_id", hc.RunID,
				"error", err)
		}
	}
}

func (r *Registry) call(ctx context.Context, handler Handler, hc *Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("hook panic: %v", p)
		}
	}()
	return handler(ctx, hc)
}

// Clear removes all registered handlers.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.handlers = make(map[Name][]Handler)
	r.mu.Unlock()
}
