// Package tools defines the Tool type and shared errors used by both
// the agent and individual tool implementations, plus the Registry that
// validates and dispatches tool invocations.
package tools

import (
	"context"
	"fmt"
)

// Tool represents a callable function the LLM can invoke
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
	Execute     func(ctx context.Context, input map[string]interface{}) (string, error)
}

// NotFoundError indicates the model requested a tool that is not registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// InvocationError indicates the model supplied parameters violating the
// tool's schema. The underlying function is never called.
type InvocationError struct {
	Tool string
	Msg  string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invalid parameters for tool %q: %s", e.Tool, e.Msg)
}
