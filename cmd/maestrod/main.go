// Command maestrod runs the orchestrator against a scripted model and a
// small calculator tool, printing the event stream. It exists to exercise
// the full run pipeline end to end without a real model provider.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maestro-agents/maestro/internal/assembler"
	"github.com/maestro-agents/maestro/internal/config"
	"github.com/maestro-agents/maestro/internal/observability"
	"github.com/maestro-agents/maestro/internal/runner"
	"github.com/maestro-agents/maestro/internal/sessions"
	"github.com/maestro-agents/maestro/pkg/models"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a yaml/json5 config file")
		metricsAddr = flag.String("metrics", "", "address for /metrics (empty disables)")
		message     = flag.String("message", "add 2 and 3", "user message to run")
		modelID     = flag.String("model", "claude-3-5-sonnet-latest", "model id for parameter resolution")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	store := sessions.NewMemoryStore()
	store.SetMetadata("demo", "modelId", *modelID)

	asm := assembler.New(store,
		assembler.SectionsFunc(func(ctx context.Context, sessionID, agentID string) ([]assembler.Section, error) {
			return []assembler.Section{
				{Name: "bootstrap", Content: "You are a helpful assistant with a calculator.", Priority: assembler.PriorityBootstrap},
			}, nil
		}),
		nil, assembler.DefaultConfig(), logger)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	r := runner.New(runner.Options{
		Store:     store,
		Assembler: asm,
		Model:     scriptedModel{},
		Executor:  calcExecutor{},
		Logger:    logger,
		Metrics:   metrics,
	})

	if *configPath != "" {
		f, err := config.Load(*configPath)
		if err != nil {
			logger.Error("load config", "error", err)
			os.Exit(1)
		}
		r.Configure(f.Overrides())
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	handle, err := r.Execute(runner.Request{Message: *message, SessionID: "demo"})
	if err != nil {
		logger.Error("execute", "error", err)
		os.Exit(1)
	}
	for ev := range handle.Events(context.Background()) {
		printEvent(ev)
	}
}

func printEvent(ev models.AgentEvent) {
	switch ev.Type {
	case models.EventModelDelta:
		fmt.Print(ev.Model.Delta)
	case models.EventModelComplete:
		fmt.Println()
	case models.EventToolStart:
		args, _ := json.Marshal(ev.Tool.Arguments)
		fmt.Printf("[tool %s %s]\n", ev.Tool.ToolName, args)
	case models.EventToolComplete:
		fmt.Printf("[tool %s -> %s]\n", ev.Tool.ToolCallID, ev.Tool.Result.Content)
	case models.EventRunCompleted:
		fmt.Printf("[done: %s]\n", ev.Run.Result.StopReason)
	case models.EventRunError:
		fmt.Printf("[error: %s]\n", ev.Run.Error)
	case models.EventRunCancelled:
		fmt.Printf("[cancelled: %s]\n", ev.Run.Reason)
	}
}

// scriptedModel answers with one tool call on the first turn and a plain
// completion on the next.
type scriptedModel struct{}

func (scriptedModel) Stream(ctx context.Context, req runner.ModelRequest) (<-chan models.StreamChunk, error) {
	out := make(chan models.StreamChunk, 8)
	go func() {
		defer close(out)
		if hasToolResult(req.Messages) {
			out <- models.StreamChunk{Type: models.ChunkContent, Text: "The answer is 5."}
			out <- models.StreamChunk{Type: models.ChunkResponse, Response: &models.ModelResponse{
				ID: "resp_2", Content: "The answer is 5.", FinishReason: "stop",
				Usage: &models.TokenUsage{InputTokens: 40, OutputTokens: 8},
			}}
			return
		}
		out <- models.StreamChunk{Type: models.ChunkResponse, Response: &models.ModelResponse{
			ID: "resp_1", FinishReason: "tool_use",
			ToolCalls: []models.ToolCall{{ID: "t1", Name: "add", Arguments: map[string]any{"a": 2.0, "b": 3.0}}},
			Usage:     &models.TokenUsage{InputTokens: 30, OutputTokens: 12},
		}}
	}()
	return out, nil
}

func hasToolResult(msgs []models.ModelMessage) bool {
	for _, m := range msgs {
		for _, b := range m.Blocks {
			if b.Type == "tool_result" {
				return true
			}
		}
	}
	return false
}

// calcExecutor provides a single "add" tool.
type calcExecutor struct{}

func (calcExecutor) Tools() []models.ToolDefinition {
	return []models.ToolDefinition{{
		Name:        "add",
		Description: "Add two numbers.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []any{"a", "b"},
		},
	}}
}

func (calcExecutor) Execute(ctx context.Context, name string, args map[string]any, ec runner.ExecContext) (*runner.ToolOutput, error) {
	if name != "add" {
		return &runner.ToolOutput{Error: fmt.Sprintf("unknown tool %q", name)}, nil
	}
	a, _ := args["a"].(float64)
	b, _ := args["b"].(float64)
	return &runner.ToolOutput{Content: fmt.Sprintf("%g", a+b)}, nil
}
