package assistant

import (
	"context"
	"encoding/json"
)

// Role represents the role of a message sender
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in the conversation
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"` // Optional, used for tool responses
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // Used when Role is Tool to link back to the call
}

// ToolCall represents a request from the LLM to execute a function
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall represents the details of a function execution request
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// FunctionSpec declares a callable operation offered to the LLM.
// Parameters is a JSON Schema describing the arguments. ResultKey names the
// slot of the terminal payload this function's output is stored under;
// ResultFields lists the keys that output must contain (the output contract
// checked by the validator).
type FunctionSpec struct {
	Name         string
	Description  string
	Parameters   json.RawMessage
	ResultKey    string
	ResultFields []string
}

// LLMProvider defines the interface for interacting with LLM backends.
// Each implementation translates the neutral conversation and function specs
// into its provider's wire shape and translates the response back.
type LLMProvider interface {
	// Chat sends messages to the LLM and returns the response, potentially including tool calls
	Chat(ctx context.Context, messages []Message, functions []FunctionSpec) (*Message, error)
}
