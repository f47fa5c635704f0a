package runner

import (
	"context"

	"github.com/maestro-agents/maestro/pkg/models"
)

// ModelRequest is one model call's input.
type ModelRequest struct {
	Parameters   models.ModelParameters
	SystemPrompt string
	Messages     []models.ModelMessage
	Tools        []models.ToolDefinition
}

// ModelAdapter streams a model response. The returned channel is closed
// after the terminal response chunk; adapter errors surface either from
// Stream itself or as an error chunkless close observed by the caller.
// Implementations must observe ctx and stop streaming promptly when it
// is cancelled.
type ModelAdapter interface {
	Stream(ctx context.Context, req ModelRequest) (<-chan models.StreamChunk, error)
}

// ModelFunc adapts a function to ModelAdapter.
type ModelFunc func(ctx context.Context, req ModelRequest) (<-chan models.StreamChunk, error)

func (f ModelFunc) Stream(ctx context.Context, req ModelRequest) (<-chan models.StreamChunk, error) {
	return f(ctx, req)
}
