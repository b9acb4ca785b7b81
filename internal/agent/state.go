package agent

import (
	"fmt"

	"github.com/csvagent/csvagent/internal/llm"
)

// State is the per-request conversation state. The orchestrator is a small
// explicit machine so retry and termination logic can be tested without a
// live model.
type State int

const (
	// StateAwaitingModel: the conversation is with the model; we are
	// waiting for either an answer or tool requests.
	StateAwaitingModel State = iota
	// StateToolRequested: the model asked for one or more tool
	// invocations that have not been executed yet.
	StateToolRequested
	// StateAnswered: terminal; the model produced a final text answer.
	StateAnswered
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateToolRequested:
		return "tool_requested"
	case StateAnswered:
		return "answered"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transition maps a model reply onto the next state. Only AwaitingModel can
// consume a reply; tool execution moves ToolRequested back to AwaitingModel
// via Resume.
func Transition(from State, reply *llm.Reply) (State, error) {
	if from != StateAwaitingModel {
		return from, fmt.Errorf("cannot consume a model reply in state %s", from)
	}
	if len(reply.ToolCalls) > 0 {
		return StateToolRequested, nil
	}
	return StateAnswered, nil
}

// Resume returns to AwaitingModel after the requested tools have been
// executed and their results appended to the conversation.
func Resume(from State) (State, error) {
	if from != StateToolRequested {
		return from, fmt.Errorf("cannot resume from state %s", from)
	}
	return StateAwaitingModel, nil
}
