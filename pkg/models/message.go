package models

import "time"

// Role indicates the message author type as seen by the model.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// MessageType classifies a stored session message.
type MessageType string

const (
	MessageText       MessageType = "text"
	MessageToolCall   MessageType = "tool_call"
	MessageToolResult MessageType = "tool_result"
	MessageCompaction MessageType = "compaction"
)

// Message is a stored session message.
type Message struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	Role        string         `json:"role"`
	Type        MessageType    `json:"type"`
	Content     string         `json:"content"`
	Blocks      []ContentBlock `json:"blocks,omitempty"`
	ToolCalls   []ToolCall     `json:"tool_calls,omitempty"`
	ToolResults []ToolResult   `json:"tool_results,omitempty"`
	ParentID    string         `json:"parent_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ContentBlock is one element of structured message content.
type ContentBlock struct {
	Type       string         `json:"type"` // text, image, tool_use, tool_result
	Text       string         `json:"text,omitempty"`
	Data       []byte         `json:"data,omitempty"` // raw image bytes
	MimeType   string         `json:"mime_type,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	Arguments  map[string]any `json:"arguments,omitempty"`
	Content    string         `json:"content,omitempty"` // tool_result content
}

// ModelMessage is a message shaped for the model transport.
type ModelMessage struct {
	Role    Role           `json:"role"`
	Content string         `json:"content"`
	Blocks  []ContentBlock `json:"blocks,omitempty"`
}

// ToolCall is a model's request to execute a tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the outcome of one tool execution.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

// IsError reports whether the execution failed.
func (r ToolResult) IsError() bool { return r.Error != "" }

// ToolDefinition describes a tool offered to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
	Permissions []string       `json:"permissions,omitempty"`
	Source      string         `json:"source,omitempty"` // executor, skill, additional
}

// Skill is a named capability contributing prompt instructions and tools.
type Skill struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Priority     int              `json:"priority"`
	Instructions string           `json:"instructions"`
	Examples     []string         `json:"examples,omitempty"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// ModelResponse is the final chunk of a model stream.
type ModelResponse struct {
	ID           string      `json:"id"`
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
}

// StreamChunkType discriminates model stream chunks.
type StreamChunkType string

const (
	ChunkContent  StreamChunkType = "content"
	ChunkThinking StreamChunkType = "thinking"
	ChunkResponse StreamChunkType = "response"
)

// StreamChunk is one element of a model's streamed output.
type StreamChunk struct {
	Type     StreamChunkType `json:"type"`
	Text     string          `json:"text,omitempty"`
	Response *ModelResponse  `json:"response,omitempty"`
}
