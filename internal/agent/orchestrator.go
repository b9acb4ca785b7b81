// Package agent runs the tool-calling conversation loop between the model
// endpoint and the dataset tool registry.
package agent

import (
	"context"
	"fmt"

	"github.com/csvagent/csvagent/internal/llm"
	"github.com/csvagent/csvagent/internal/tools"
	"github.com/rs/zerolog/log"
)

// OrchestrationError is terminal: repeated tool failures, too many model
// rounds, or an unreachable model endpoint. Surfaced to the caller.
type OrchestrationError struct {
	Msg string
	Err error
}

func (e *OrchestrationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("orchestration failed: %s: %v", e.Msg, e.Err)
	}
	return "orchestration failed: " + e.Msg
}

func (e *OrchestrationError) Unwrap() error { return e.Err }

// Orchestrator drives one question-to-answer exchange. Conversation state is
// request-scoped; nothing persists across Ask calls, so one Orchestrator can
// serve concurrent requests.
type Orchestrator struct {
	provider        llm.Provider
	registry        *tools.Registry
	maxRounds       int
	maxToolFailures int
}

func NewOrchestrator(provider llm.Provider, registry *tools.Registry, maxRounds, maxToolFailures int) *Orchestrator {
	if maxRounds <= 0 {
		maxRounds = 8
	}
	if maxToolFailures <= 0 {
		maxToolFailures = 3
	}
	return &Orchestrator{
		provider:        provider,
		registry:        registry,
		maxRounds:       maxRounds,
		maxToolFailures: maxToolFailures,
	}
}

// Result is the outcome of one conversation turn.
type Result struct {
	Answer    string
	ToolsUsed []string
	Rounds    int
}

// Ask runs the loop: send the conversation with tool descriptors, execute
// any requested tools, feed results back, repeat until the model answers.
// A failed tool invocation is reported to the model as an error tool result
// and is not fatal unless maxToolFailures invocations fail in a row.
func (o *Orchestrator) Ask(ctx context.Context, systemPrompt, question string) (*Result, error) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: question},
	}
	if systemPrompt != "" {
		messages = append([]llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}, messages...)
	}

	registered := o.registry.List()
	defs := make([]llm.ToolDef, len(registered))
	for i, t := range registered {
		defs[i] = llm.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}
	}

	var toolsUsed []string
	failures := 0
	state := StateAwaitingModel

	for round := 1; round <= o.maxRounds; round++ {
		reply, err := o.chat(ctx, messages, defs)
		if err != nil {
			return nil, &OrchestrationError{Msg: "model endpoint unavailable", Err: err}
		}

		state, err = Transition(state, reply)
		if err != nil {
			return nil, &OrchestrationError{Msg: "invalid state transition", Err: err}
		}

		log.Debug().
			Int("round", round).
			Stringer("state", state).
			Int("tool_calls", len(reply.ToolCalls)).
			Msg("agent round")

		if state == StateAnswered {
			return &Result{Answer: reply.Text, ToolsUsed: toolsUsed, Rounds: round}, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		})

		for _, tc := range reply.ToolCalls {
			toolsUsed = append(toolsUsed, tc.Name)

			result, execErr := o.registry.Invoke(ctx, tc.Name, tc.Arguments)
			if execErr != nil {
				failures++
				if failures >= o.maxToolFailures {
					return nil, &OrchestrationError{
						Msg: fmt.Sprintf("%d consecutive tool failures", failures),
						Err: execErr,
					}
				}
				result = "error: " + execErr.Error()
			} else {
				failures = 0
			}

			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
				IsError:    execErr != nil,
			})
		}

		state, err = Resume(state)
		if err != nil {
			return nil, &OrchestrationError{Msg: "invalid state transition", Err: err}
		}
	}

	return nil, &OrchestrationError{Msg: fmt.Sprintf("no answer after %d rounds", o.maxRounds)}
}

// chat calls the provider with exactly one re-attempt on transport failure.
// Endpoint errors are never silently retried more than once, and a dead
// context is not retried at all.
func (o *Orchestrator) chat(ctx context.Context, messages []llm.Message, defs []llm.ToolDef) (*llm.Reply, error) {
	reply, err := o.provider.Chat(ctx, messages, defs)
	if err == nil {
		return reply, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	log.Warn().Err(err).Msg("model endpoint error, retrying once")
	return o.provider.Chat(ctx, messages, defs)
}
