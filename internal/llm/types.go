// Package llm is the boundary to the hosted chat model: a provider-neutral
// message/tool model and an OpenAI-compatible implementation.
package llm

import (
	"context"
	"errors"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ErrNoChoices is returned when the provider answers without any choice.
var ErrNoChoices = errors.New("provider returned no choices")

// Message is one entry of the conversation sent to the provider.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a function invocation requested by the model. Arguments is
// whatever the provider sent: a decoded mapping or a serialized JSON string.
type ToolCall struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Arguments interface{} `json:"arguments"`
}

// ToolSpec declares a function the model may call. Parameters is a JSON schema.
type ToolSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Request is a single completion request.
type Request struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Reply is the model's answer to a Request.
type Reply struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Model        string
	Usage        Usage
}

// Provider sends completion requests to a chat model.
type Provider interface {
	Complete(ctx context.Context, req *Request) (*Reply, error)
	Name() string
}
