package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/maestro-agents/maestro/internal/assembler"
	"github.com/maestro-agents/maestro/internal/cancels"
	"github.com/maestro-agents/maestro/internal/hooks"
	"github.com/maestro-agents/maestro/internal/observability"
	"github.com/maestro-agents/maestro/internal/queue"
	"github.com/maestro-agents/maestro/internal/retry"
	"github.com/maestro-agents/maestro/internal/runid"
	"github.com/maestro-agents/maestro/internal/runstate"
	"github.com/maestro-agents/maestro/internal/sessions"
	"github.com/maestro-agents/maestro/internal/stream"
	"github.com/maestro-agents/maestro/pkg/models"
)

// DefaultSessionID is used when a request names no session.
const DefaultSessionID = "default"

// DefaultCancelReason is used when Cancel is called without a reason.
const DefaultCancelReason = "Run cancelled"

// Request submits one run.
type Request struct {
	Message   string
	Blocks    []models.ContentBlock
	SessionID string
	AgentID   string
	UserID    string
	Priority  int
	Context   assembler.AssembleOptions
}

// Options wires a Runner's collaborators.
type Options struct {
	Config    Config // zero value means DefaultConfig
	Store     sessions.Store
	Assembler *assembler.Assembler
	Model     ModelAdapter
	Executor  ToolExecutor
	Hooks     *hooks.Registry
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// Runner orchestrates runs: admission, session locking, the turn loop,
// tool rounds, and event delivery.
type Runner struct {
	mu     sync.RWMutex
	config Config
	runs   map[string]*models.Run

	queue   *queue.Queue
	locks   *sessions.LockManager
	cancels *cancels.Controller
	retries *retry.Engine
	hooks   *hooks.Registry

	store     sessions.Store
	assembler *assembler.Assembler
	model     ModelAdapter
	executor  ToolExecutor

	ids     *runid.Generator
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer
}

// New creates a Runner.
func New(opts Options) *Runner {
	cfg := opts.Config
	if cfg.Concurrency.MaxConcurrentRuns == 0 {
		cfg = DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Hooks
	if reg == nil {
		reg = hooks.NewRegistry(logger)
	}
	return &Runner{
		config:    cfg,
		runs:      make(map[string]*models.Run),
		queue:     queue.New(cfg.Concurrency.MaxConcurrentRuns),
		locks:     sessions.NewLockManager(logger),
		cancels:   cancels.NewController(),
		retries:   retry.NewEngine(cfg.retryConfig(), logger),
		hooks:     reg,
		store:     opts.Store,
		assembler: opts.Assembler,
		model:     opts.Model,
		executor:  opts.Executor,
		ids:       runid.New(),
		logger:    logger.With("component", "runner"),
		metrics:   opts.Metrics,
		tracer:    observability.Tracer("maestro/runner"),
	}
}

// RunHandle is the caller's view of a submitted run.
type RunHandle struct {
	RunID     string
	SessionID string

	runner *Runner
	stream *stream.Stream
}

// Events returns the run's event sequence as a channel. The channel is
// closed at the terminal event or when ctx ends.
func (h *RunHandle) Events(ctx context.Context) <-chan models.AgentEvent {
	return h.stream.Channel(ctx)
}

// Next returns the next event, stream.ErrDone at end of stream.
func (h *RunHandle) Next(ctx context.Context) (models.AgentEvent, error) {
	return h.stream.Next(ctx)
}

// Cancel requests cooperative cancellation of the run.
func (h *RunHandle) Cancel(reason string) {
	h.runner.Cancel(h.RunID, reason)
}

// State returns the run's current lifecycle state.
func (h *RunHandle) State() models.RunState {
	return h.runner.State(h.RunID)
}

// On registers a lifecycle hook handler.
func (r *Runner) On(name hooks.Name, handler hooks.Handler) {
	r.hooks.Register(name, handler)
}

// Configure merges partial overrides into the configuration. The merged
// view applies to subsequent runs only.
func (r *Runner) Configure(o Overrides) {
	r.mu.Lock()
	r.config = o.Apply(r.config)
	r.mu.Unlock()
}

// GetConfig returns the current configuration.
func (r *Runner) GetConfig() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// State returns the run's state, or empty for unknown runs.
func (r *Runner) State(runID string) models.RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if run, ok := r.runs[runID]; ok {
		return run.State
	}
	return ""
}

// Cancel marks the run cancelled and removes it from the queue if it has
// not been admitted yet. An already-running run fails at its next
// cancellation check or blocking await.
func (r *Runner) Cancel(runID, reason string) {
	if reason == "" {
		reason = DefaultCancelReason
	}
	r.cancels.Cancel(runID, reason)
	r.queue.Remove(runID)
}

// QueueStatus reports queue depth, running count, and capacity.
func (r *Runner) QueueStatus() queue.Status {
	return r.queue.Status()
}

// Execute submits a run and returns its handle. The run.queued event is
// already emitted when Execute returns.
func (r *Runner) Execute(req Request) (*RunHandle, error) {
	if req.Message == "" && len(req.Blocks) == 0 {
		return nil, NewError(KindInvalidRequest, "empty message")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	cfg := r.GetConfig()

	if r.model == nil {
		return nil, NewError(KindInvalidRequest, "no model adapter configured")
	}
	if r.assembler == nil {
		return nil, NewError(KindInvalidRequest, "no context assembler configured")
	}

	runID := r.ids.Next()
	bufferSize := cfg.Streaming.BufferSize
	if !cfg.Streaming.EnableBackpressure {
		// Effectively unbounded; the producer never throttles.
		bufferSize = 1 << 20
	}
	st := stream.New(bufferSize)
	handle := r.cancels.Create(runID)

	run := &models.Run{
		RunID:      runID,
		SessionID:  sessionID,
		Priority:   req.Priority,
		State:      models.RunPending,
		EnqueuedAt: time.Now(),
	}
	r.mu.Lock()
	r.runs[runID] = run
	r.mu.Unlock()

	position := r.queue.Enqueue(runID, sessionID, req.Priority)
	if err := r.setState(runID, models.RunQueued); err != nil {
		return nil, err
	}
	r.observeQueue()
	r.emit(context.Background(), st, models.AgentEvent{
		Type:  models.EventRunQueued,
		RunID: runID,
		Run:   &models.RunEventPayload{Position: position},
	})

	go r.run(run, req, cfg, st, handle)

	return &RunHandle{RunID: runID, SessionID: sessionID, runner: r, stream: st}, nil
}

// run drives one run to its terminal event.
func (r *Runner) run(run *models.Run, req Request, cfg Config, st *stream.Stream, handle *cancels.Handle) {
	runID, sessionID := run.RunID, run.SessionID
	ctx, stop := handle.Bind(context.Background())
	defer stop()

	ctx, span := observability.StartRunSpan(ctx, r.tracer, runID, sessionID)

	stats := &models.RunStats{RunID: runID, StartedAt: time.Now()}
	var lock *sessions.Lock
	var runErr error
	defer func() {
		if lock != nil {
			lock.Release()
		}
		r.queue.Complete(runID)
		r.observeQueue()
		r.cancels.Cleanup(runID)
		r.retries.Reset(runID)
		observability.EndSpan(span, runErr)
		st.Close()
	}()

	if err := r.queue.Admit(ctx, runID); err != nil {
		runErr = r.fail(run, st, handle, err)
		return
	}
	r.observeQueue()

	lockStart := time.Now()
	acquired, err := r.locks.Acquire(ctx, sessionID, runID, cfg.Limits.QueueTimeout)
	if err != nil {
		if errors.Is(err, sessions.ErrLockTimeout) {
			r.setState(runID, models.RunTimeout)
			r.emitTerminal(st, models.AgentEvent{
				Type:  models.EventRunError,
				RunID: runID,
				Run:   &models.RunEventPayload{Error: WrapError(KindAcquireTimeout, err).Error()},
			})
			r.hooks.Execute(context.Background(), hooks.OnError, &hooks.Context{RunID: runID, SessionID: sessionID, Err: err})
			r.observeTerminal(models.RunTimeout, stats)
			runErr = err
			return
		}
		runErr = r.fail(run, st, handle, err)
		return
	}
	lock = acquired
	if r.metrics != nil {
		r.metrics.LockWait.Observe(time.Since(lockStart).Seconds())
	}

	if err := r.setState(runID, models.RunRunning); err != nil {
		runErr = r.fail(run, st, handle, err)
		return
	}
	run.StartedAt = time.Now()

	r.hooks.Execute(ctx, hooks.BeforeRun, &hooks.Context{RunID: runID, SessionID: sessionID})

	userMsg := &models.Message{
		SessionID: sessionID,
		Role:      string(models.RoleUser),
		Type:      models.MessageText,
		Content:   req.Message,
		Blocks:    req.Blocks,
	}
	if cfg.Execution.SaveToSession && r.store != nil {
		if _, err := r.store.Append(ctx, sessionID, userMsg); err != nil {
			runErr = r.fail(run, st, handle, fmt.Errorf("persist user message: %w", err))
			return
		}
		if r.assembler != nil {
			r.assembler.InvalidateCache(sessionID)
		}
	}

	if err := r.emit(ctx, st, models.AgentEvent{Type: models.EventRunStarted, RunID: runID}); err != nil {
		runErr = r.fail(run, st, handle, err)
		return
	}

	result, err := r.turnLoop(ctx, run, req, cfg, st, handle, stats, userMsg)
	if err != nil {
		runErr = r.fail(run, st, handle, err)
		return
	}

	r.setState(runID, models.RunCompleted)
	run.StopReason = result.StopReason
	run.CompletedAt = time.Now()
	stats.FinishedAt = run.CompletedAt
	stats.WallTime = stats.FinishedAt.Sub(stats.StartedAt)
	result.Stats = stats
	r.emitTerminal(st, models.AgentEvent{
		Type:  models.EventRunCompleted,
		RunID: runID,
		Run:   &models.RunEventPayload{Result: result},
	})
	r.hooks.Execute(context.Background(), hooks.AfterRun, &hooks.Context{RunID: runID, SessionID: sessionID, Result: result})
	r.observeTerminal(models.RunCompleted, stats)
}

// turnLoop runs turns until the model stops, a budget is exhausted, or an
// error escapes. It returns the completed-run result.
func (r *Runner) turnLoop(ctx context.Context, run *models.Run, req Request, cfg Config, st *stream.Stream, handle *cancels.Handle, stats *models.RunStats, userMsg *models.Message) (*models.RunResult, error) {
	runID, sessionID := run.RunID, run.SessionID
	driver := NewTurnDriver(cfg.Limits.MaxTurns, cfg.Limits.MaxToolRounds)
	usage := &models.TokenUsage{}
	lastContent := ""

	// Messages produced mid-run that are not persisted to the session
	// store; appended after the assembled history each turn. When the run
	// does not persist, the submitted user message itself rides here so
	// the model still sees it.
	var carry []models.ModelMessage
	if !cfg.Execution.SaveToSession || r.store == nil {
		carry = assembler.Transform([]*models.Message{userMsg})
	}

	finish := func(reason models.StopReason) *models.RunResult {
		counters := driver.Counters()
		stats.Turns = counters.Turns
		stats.ToolRounds = counters.ToolRounds
		return &models.RunResult{
			RunID:      runID,
			SessionID:  sessionID,
			State:      models.RunCompleted,
			StopReason: reason,
			Message:    lastContent,
			Usage:      usage,
		}
	}

	for {
		if err := handle.Err(); err != nil {
			return nil, err
		}
		ok, reason := driver.CanContinue()
		if !ok {
			return finish(reason), nil
		}
		driver.StartTurn()

		assembled, err := r.assembleTurn(ctx, req, cfg, st, runID, sessionID, stats, carry)
		if err != nil {
			return nil, err
		}

		resp, err := r.modelTurn(ctx, cfg, st, handle, runID, sessionID, assembled, stats)
		if err != nil {
			return nil, err
		}
		if resp.Content != "" {
			lastContent = resp.Content
		}
		if resp.Usage != nil {
			usage.InputTokens += resp.Usage.InputTokens
			usage.OutputTokens += resp.Usage.OutputTokens
			stats.InputTokens += resp.Usage.InputTokens
			stats.OutputTokens += resp.Usage.OutputTokens
			if r.metrics != nil {
				r.metrics.TokensTotal.WithLabelValues("input").Add(float64(resp.Usage.InputTokens))
				r.metrics.TokensTotal.WithLabelValues("output").Add(float64(resp.Usage.OutputTokens))
			}
		}

		calls := ParseToolCalls(resp)
		if len(calls) == 0 {
			if cfg.Execution.SaveToSession && r.store != nil {
				final := &models.Message{
					SessionID: sessionID,
					Role:      string(models.RoleAssistant),
					Type:      models.MessageText,
					Content:   resp.Content,
				}
				if _, err := r.store.Append(ctx, sessionID, final); err != nil {
					return nil, fmt.Errorf("persist assistant message: %w", err)
				}
				if r.assembler != nil {
					r.assembler.InvalidateCache(sessionID)
				}
			}
			return finish(models.StopReasonStop), nil
		}

		if err := ValidateToolCalls(calls); err != nil {
			return nil, err
		}
		if !driver.CanStartToolRound() {
			return finish(models.StopReasonMaxToolRounds), nil
		}
		driver.StartToolRound()

		results := r.toolRound(ctx, cfg, st, runID, sessionID, req.UserID, req.Context.Permissions, calls, stats)

		assistant := &models.Message{
			SessionID: sessionID,
			Role:      string(models.RoleAssistant),
			Type:      models.MessageToolCall,
			Content:   resp.Content,
			ToolCalls: calls,
		}
		toolMsg := &models.Message{
			SessionID:   sessionID,
			Role:        string(models.RoleUser),
			Type:        models.MessageToolResult,
			ToolResults: results,
		}
		if cfg.Execution.SaveToSession && r.store != nil {
			if _, err := r.store.Append(ctx, sessionID, assistant); err != nil {
				return nil, fmt.Errorf("persist tool-call message: %w", err)
			}
			if _, err := r.store.Append(ctx, sessionID, toolMsg); err != nil {
				return nil, fmt.Errorf("persist tool-result message: %w", err)
			}
			if r.assembler != nil {
				r.assembler.InvalidateCache(sessionID)
			}
		} else {
			carry = append(carry, assembler.Transform([]*models.Message{assistant, toolMsg})...)
		}
	}
}

// assembleTurn emits context.start / context.complete around assembly.
func (r *Runner) assembleTurn(ctx context.Context, req Request, cfg Config, st *stream.Stream, runID, sessionID string, stats *models.RunStats, carry []models.ModelMessage) (*models.AssembledContext, error) {
	if err := r.emit(ctx, st, models.AgentEvent{Type: models.EventContextStart, RunID: runID}); err != nil {
		return nil, err
	}
	start := time.Now()
	assembled, err := r.assembler.Assemble(ctx, sessionID, req.AgentID, req.Context)
	if err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}
	elapsed := time.Since(start)
	stats.AssemblyTime += elapsed
	if r.metrics != nil {
		r.metrics.AssemblyTime.Observe(elapsed.Seconds())
	}

	if len(carry) > 0 {
		merged := *assembled
		merged.Messages = append(append([]models.ModelMessage{}, assembled.Messages...), carry...)
		assembled = &merged
	}

	r.hooks.Execute(ctx, hooks.AfterContextAssembly, &hooks.Context{RunID: runID, SessionID: sessionID, Assembled: assembled})
	if err := r.emit(ctx, st, models.AgentEvent{
		Type:    models.EventContextComplete,
		RunID:   runID,
		Context: &models.ContextEventPayload{Context: assembled},
	}); err != nil {
		return nil, err
	}
	return assembled, nil
}

// modelTurn streams one model call with retry. Each attempt opens with its
// own model.start so consumers reset any partially relayed text before a
// re-streamed attempt repeats it.
func (r *Runner) modelTurn(ctx context.Context, cfg Config, st *stream.Stream, handle *cancels.Handle, runID, sessionID string, assembled *models.AssembledContext, stats *models.RunStats) (*models.ModelResponse, error) {
	r.hooks.Execute(ctx, hooks.BeforeModelCall, &hooks.Context{RunID: runID, SessionID: sessionID, Assembled: assembled})

	var resp *models.ModelResponse
	start := time.Now()
	attempts := 0
	err := r.retries.Execute(ctx, runID, handle, func(ctx context.Context) error {
		attempts++
		if err := r.emit(ctx, st, models.AgentEvent{Type: models.EventModelStart, RunID: runID}); err != nil {
			return retry.Permanent(err)
		}
		chunks, err := r.model.Stream(ctx, ModelRequest{
			Parameters:   assembled.Parameters,
			SystemPrompt: assembled.SystemPrompt,
			Messages:     assembled.Messages,
			Tools:        assembled.Tools,
		})
		if err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return context.Cause(ctx)
			case chunk, open := <-chunks:
				if !open {
					if resp == nil {
						return NewError(KindUnavailable, "model stream ended without response")
					}
					return nil
				}
				switch chunk.Type {
				case models.ChunkContent:
					if !cfg.Execution.StreamEvents {
						continue
					}
					if err := r.emit(ctx, st, models.AgentEvent{
						Type:  models.EventModelDelta,
						RunID: runID,
						Model: &models.ModelEventPayload{Delta: chunk.Text},
					}); err != nil {
						return retry.Permanent(err)
					}
				case models.ChunkThinking:
					if !cfg.Execution.StreamEvents {
						continue
					}
					if err := r.emit(ctx, st, models.AgentEvent{
						Type:  models.EventModelThinking,
						RunID: runID,
						Model: &models.ModelEventPayload{Delta: chunk.Text},
					}); err != nil {
						return retry.Permanent(err)
					}
				case models.ChunkResponse:
					resp = chunk.Response
				}
			}
		}
	})
	elapsed := time.Since(start)
	stats.ModelTime += elapsed
	if attempts > 1 {
		retriesMade := attempts - 1
		stats.Retries += retriesMade
		if r.metrics != nil {
			r.metrics.RetriesTotal.Add(float64(retriesMade))
		}
	}
	if r.metrics != nil {
		r.metrics.ModelDuration.Observe(elapsed.Seconds())
	}
	if err != nil {
		return nil, err
	}

	r.hooks.Execute(ctx, hooks.AfterModelCall, &hooks.Context{RunID: runID, SessionID: sessionID, Response: resp})
	if err := r.emit(ctx, st, models.AgentEvent{
		Type:  models.EventModelComplete,
		RunID: runID,
		Model: &models.ModelEventPayload{Response: resp},
	}); err != nil {
		return nil, err
	}
	return resp, nil
}

// toolRound executes one turn's tool calls, bounded by the per-round
// parallelism cap. Tool failures are folded back as error results and do
// not abort the run.
func (r *Runner) toolRound(ctx context.Context, cfg Config, st *stream.Stream, runID, sessionID, userID string, permissions []string, calls []models.ToolCall, stats *models.RunStats) []models.ToolResult {
	parallel := cfg.Concurrency.MaxConcurrentToolCalls
	if cfg.Limits.MaxToolCallsPerRound > 0 && (parallel <= 0 || parallel > cfg.Limits.MaxToolCallsPerRound) {
		parallel = cfg.Limits.MaxToolCallsPerRound
	}
	if parallel <= 0 {
		parallel = 1
	}

	results := make([]models.ToolResult, len(calls))
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call models.ToolCall) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.executeTool(ctx, st, runID, sessionID, userID, permissions, call, stats)
		}(i, call)
	}
	wg.Wait()
	stats.ToolCalls += len(calls)
	for _, res := range results {
		if res.IsError() {
			stats.ToolFailures++
		}
	}
	return results
}

// executeTool runs a single call: tool.start, execution with the run's
// cancel-bound context, then tool.complete or tool.error. Panics in the
// executor become tool errors.
func (r *Runner) executeTool(ctx context.Context, st *stream.Stream, runID, sessionID, userID string, permissions []string, call models.ToolCall, stats *models.RunStats) models.ToolResult {
	r.hooks.Execute(ctx, hooks.BeforeToolExecution, &hooks.Context{RunID: runID, SessionID: sessionID, ToolCall: &call})
	r.emit(ctx, st, models.AgentEvent{
		Type:  models.EventToolStart,
		RunID: runID,
		Tool: &models.ToolEventPayload{
			ToolCallID: call.ID,
			ToolName:   call.Name,
			Arguments:  call.Arguments,
		},
	})

	start := time.Now()
	output, err := r.safeExecute(ctx, call, ExecContext{
		SessionID:   sessionID,
		UserID:      userID,
		RunID:       runID,
		ToolCallID:  call.ID,
		Permissions: permissions,
	})
	elapsed := time.Since(start)
	stats.ToolTime += elapsed

	result := models.ToolResult{ToolCallID: call.ID}
	switch {
	case err != nil:
		result.Error = err.Error()
	case output != nil:
		result.Content = output.Content
		result.Data = output.Data
		result.Error = output.Error
	}

	status := "ok"
	if result.IsError() {
		status = "error"
		r.emit(ctx, st, models.AgentEvent{
			Type:  models.EventToolError,
			RunID: runID,
			Tool: &models.ToolEventPayload{
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Error:      result.Error,
			},
		})
	} else {
		r.emit(ctx, st, models.AgentEvent{
			Type:  models.EventToolComplete,
			RunID: runID,
			Tool: &models.ToolEventPayload{
				ToolCallID: call.ID,
				ToolName:   call.Name,
				Result:     &result,
			},
		})
	}
	if r.metrics != nil {
		r.metrics.ToolsTotal.WithLabelValues(call.Name, status).Inc()
		r.metrics.ToolDuration.WithLabelValues(call.Name).Observe(elapsed.Seconds())
	}
	r.hooks.Execute(ctx, hooks.AfterToolExecution, &hooks.Context{RunID: runID, SessionID: sessionID, ToolCall: &call, ToolResult: &result})
	return result
}

func (r *Runner) safeExecute(ctx context.Context, call models.ToolCall, ec ExecContext) (output *ToolOutput, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = WrapError(KindToolExecution, fmt.Errorf("tool %q panicked: %v", call.Name, p))
		}
	}()
	if r.executor == nil {
		return nil, NewError(KindToolExecution, "no tool executor configured")
	}
	return r.executor.Execute(ctx, call.Name, call.Arguments, ec)
}

// fail classifies err as cancellation or failure and emits the matching
// terminal event.
func (r *Runner) fail(run *models.Run, st *stream.Stream, handle *cancels.Handle, err error) error {
	runID, sessionID := run.RunID, run.SessionID
	cancelled := handle.Cancelled() ||
		errors.Is(err, cancels.ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, queue.ErrRemoved)

	if cancelled {
		reason := handle.Reason()
		if reason == "" {
			reason = DefaultCancelReason
		}
		r.setState(runID, models.RunCancelled)
		run.CompletedAt = time.Now()
		r.emitTerminal(st, models.AgentEvent{
			Type:  models.EventRunCancelled,
			RunID: runID,
			Run:   &models.RunEventPayload{Reason: reason},
		})
		r.observeTerminal(models.RunCancelled, nil)
		return cancels.ErrCancelled
	}

	r.logger.Error("run failed", "run_id", runID, "session_id", sessionID, "error", err)
	r.setState(runID, models.RunFailed)
	run.CompletedAt = time.Now()
	r.emitTerminal(st, models.AgentEvent{
		Type:  models.EventRunError,
		RunID: runID,
		Run:   &models.RunEventPayload{Error: err.Error()},
	})
	r.hooks.Execute(context.Background(), hooks.OnError, &hooks.Context{RunID: runID, SessionID: sessionID, Err: err})
	r.observeTerminal(models.RunFailed, nil)
	return err
}

// setState validates and applies a lifecycle transition.
func (r *Runner) setState(runID string, to models.RunState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return NewError(KindInvalidTransition, "unknown run %s", runID)
	}
	next, err := runstate.Transition(run.State, to)
	if err != nil {
		return WrapError(KindInvalidTransition, err)
	}
	run.State = next
	return nil
}

// emit sends an event with timestamp and run id filled in.
func (r *Runner) emit(ctx context.Context, st *stream.Stream, ev models.AgentEvent) error {
	ev.Time = time.Now()
	if err := st.Emit(ctx, ev); err != nil {
		if errors.Is(err, stream.ErrClosed) {
			return WrapError(KindStreamClosed, err)
		}
		return err
	}
	return nil
}

// emitTerminal delivers a terminal event on a background context so it
// reaches the consumer even after cancellation.
func (r *Runner) emitTerminal(st *stream.Stream, ev models.AgentEvent) {
	if err := r.emit(context.Background(), st, ev); err != nil {
		r.logger.Warn("terminal event not delivered", "run_id", ev.RunID, "type", string(ev.Type), "error", err)
	}
}

func (r *Runner) observeQueue() {
	if r.metrics == nil {
		return
	}
	status := r.queue.Status()
	r.metrics.QueueDepth.Set(float64(status.Queued))
	r.metrics.RunningRuns.Set(float64(status.Running))
}

func (r *Runner) observeTerminal(state models.RunState, stats *models.RunStats) {
	if r.metrics == nil {
		return
	}
	r.metrics.RunsTotal.WithLabelValues(string(state)).Inc()
	if stats != nil && stats.WallTime > 0 {
		r.metrics.RunDuration.Observe(stats.WallTime.Seconds())
	}
}
