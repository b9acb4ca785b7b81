// Package llm defines the conversation model shared by all providers and the
// Provider interface the agent loop talks to. Two providers are included: a
// native Ollama chat client and an Anthropic-compatible client.
package llm

import (
	"context"
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single conversational turn. Tool-result messages carry the
// originating call's ID and name plus the error flag.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
	IsError    bool
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]interface{}
}

// ToolDef is the provider-independent tool descriptor handed to the model.
type ToolDef struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// Reply is one model response: either a final text answer or one or more
// tool-invocation requests (possibly with accompanying text).
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Provider is an opaque chat endpoint that supports tool calling.
type Provider interface {
	// Chat sends the conversation plus tool descriptors and returns the
	// model's reply.
	Chat(ctx context.Context, messages []Message, tools []ToolDef) (*Reply, error)
	// Check probes endpoint reachability for health reporting.
	Check(ctx context.Context) error
}

// parseToolArguments decodes a model-emitted argument payload. Models
// sometimes emit almost-JSON (single quotes, trailing commas, or the whole
// object wrapped in a string); those are repaired before giving up.
func parseToolArguments(raw []byte) map[string]interface{} {
	if len(raw) == 0 {
		return map[string]interface{}{}
	}

	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err == nil {
		return args
	}

	candidate := string(raw)
	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		candidate = inner
	}

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err == nil {
		if err := json.Unmarshal([]byte(repaired), &args); err == nil {
			return args
		}
	}

	log.Warn().Str("arguments", candidate).Msg("failed to parse tool arguments")
	return map[string]interface{}{}
}
