package agent_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/csvagent/csvagent/internal/agent"
	"github.com/csvagent/csvagent/internal/dataset"
	"github.com/csvagent/csvagent/internal/llm"
	"github.com/csvagent/csvagent/internal/security"
	"github.com/csvagent/csvagent/internal/tools"
)

// scriptedProvider replays a fixed sequence of replies and errors, recording
// every conversation it was sent.
type scriptedProvider struct {
	steps []step
	calls [][]llm.Message
}

type step struct {
	reply *llm.Reply
	err   error
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.Message, defs []llm.ToolDef) (*llm.Reply, error) {
	p.calls = append(p.calls, append([]llm.Message(nil), messages...))
	if len(p.steps) == 0 {
		return nil, errors.New("script exhausted")
	}
	s := p.steps[0]
	p.steps = p.steps[1:]
	return s.reply, s.err
}

func (p *scriptedProvider) Check(ctx context.Context) error { return nil }

func datasetRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("category,amount\nA,10\nA,20\nB,5\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	ds, err := dataset.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	reg, err := tools.NewRegistry(tools.DatasetTools(dataset.NewCalculator(ds), security.NewDataMasker(nil), false)...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

// ─── State machine ────────────────────────────────────────────────────────────

func TestTransition(t *testing.T) {
	next, err := agent.Transition(agent.StateAwaitingModel, &llm.Reply{Text: "done"})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if next != agent.StateAnswered {
		t.Errorf("state = %s, want answered", next)
	}

	next, err = agent.Transition(agent.StateAwaitingModel, &llm.Reply{
		ToolCalls: []llm.ToolCall{{ID: "call_0", Name: "dataset_schema"}},
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if next != agent.StateToolRequested {
		t.Errorf("state = %s, want tool_requested", next)
	}
}

func TestTransitionRejectsWrongState(t *testing.T) {
	if _, err := agent.Transition(agent.StateAnswered, &llm.Reply{}); err == nil {
		t.Error("expected error consuming a reply in answered state")
	}
	if _, err := agent.Transition(agent.StateToolRequested, &llm.Reply{}); err == nil {
		t.Error("expected error consuming a reply in tool_requested state")
	}
}

func TestResume(t *testing.T) {
	next, err := agent.Resume(agent.StateToolRequested)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if next != agent.StateAwaitingModel {
		t.Errorf("state = %s, want awaiting_model", next)
	}
	if _, err := agent.Resume(agent.StateAwaitingModel); err == nil {
		t.Error("expected error resuming from awaiting_model")
	}
}

// ─── Orchestrator ─────────────────────────────────────────────────────────────

func TestAskDirectAnswer(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{reply: &llm.Reply{Text: "The dataset has 3 rows."}},
	}}
	orch := agent.NewOrchestrator(provider, datasetRegistry(t), 8, 3)

	res, err := orch.Ask(context.Background(), "system", "how many rows?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Answer != "The dataset has 3 rows." {
		t.Errorf("answer = %q", res.Answer)
	}
	if res.Rounds != 1 || len(res.ToolsUsed) != 0 {
		t.Errorf("rounds = %d, tools = %v", res.Rounds, res.ToolsUsed)
	}

	// System prompt must be the first message of the conversation.
	first := provider.calls[0][0]
	if first.Role != llm.RoleSystem || first.Content != "system" {
		t.Errorf("first message = %+v", first)
	}
}

func TestAskToolRoundTrip(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{reply: &llm.Reply{ToolCalls: []llm.ToolCall{{
			ID:        "call_0",
			Name:      "sum_by_category",
			Arguments: map[string]interface{}{"category": "A"},
		}}}},
		{reply: &llm.Reply{Text: "Category A sums to 30."}},
	}}
	orch := agent.NewOrchestrator(provider, datasetRegistry(t), 8, 3)

	res, err := orch.Ask(context.Background(), "", "total for A?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(res.Answer, "30") {
		t.Errorf("answer = %q, want mention of 30", res.Answer)
	}
	if res.Rounds != 2 {
		t.Errorf("rounds = %d, want 2", res.Rounds)
	}
	if len(res.ToolsUsed) != 1 || res.ToolsUsed[0] != "sum_by_category" {
		t.Errorf("tools used = %v", res.ToolsUsed)
	}

	// The second call must carry the tool result back to the model.
	second := provider.calls[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleTool || last.ToolCallID != "call_0" {
		t.Fatalf("last message = %+v", last)
	}
	if !strings.Contains(last.Content, "30") {
		t.Errorf("tool result = %q, want the computed sum", last.Content)
	}
	if last.IsError {
		t.Error("tool result flagged as error")
	}
}

func TestAskToolFailureReportedToModel(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{reply: &llm.Reply{ToolCalls: []llm.ToolCall{{
			ID:        "call_0",
			Name:      "sum_by_category",
			Arguments: map[string]interface{}{"category": "C"},
		}}}},
		{reply: &llm.Reply{Text: "There is no category C in the dataset."}},
	}}
	orch := agent.NewOrchestrator(provider, datasetRegistry(t), 8, 3)

	res, err := orch.Ask(context.Background(), "", "total for C?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(res.Answer, "no category C") {
		t.Errorf("answer = %q", res.Answer)
	}

	second := provider.calls[1]
	last := second[len(second)-1]
	if !last.IsError || !strings.HasPrefix(last.Content, "error: ") {
		t.Errorf("tool failure message = %+v", last)
	}
}

func TestAskConsecutiveToolFailures(t *testing.T) {
	badCall := llm.ToolCall{ID: "call_0", Name: "sum_by_category", Arguments: map[string]interface{}{"category": "C"}}
	provider := &scriptedProvider{steps: []step{
		{reply: &llm.Reply{ToolCalls: []llm.ToolCall{badCall}}},
		{reply: &llm.Reply{ToolCalls: []llm.ToolCall{badCall}}},
	}}
	orch := agent.NewOrchestrator(provider, datasetRegistry(t), 8, 2)

	_, err := orch.Ask(context.Background(), "", "total for C?")
	var orchErr *agent.OrchestrationError
	if !errors.As(err, &orchErr) {
		t.Fatalf("expected *OrchestrationError, got %v", err)
	}
	var computeErr *dataset.ComputeError
	if !errors.As(err, &computeErr) {
		t.Errorf("cause should be the tool's *ComputeError, got %v", err)
	}
}

func TestAskFailureCountResets(t *testing.T) {
	bad := llm.ToolCall{ID: "call_0", Name: "sum_by_category", Arguments: map[string]interface{}{"category": "C"}}
	good := llm.ToolCall{ID: "call_1", Name: "sum_by_category", Arguments: map[string]interface{}{"category": "A"}}
	provider := &scriptedProvider{steps: []step{
		{reply: &llm.Reply{ToolCalls: []llm.ToolCall{bad}}},
		{reply: &llm.Reply{ToolCalls: []llm.ToolCall{good}}},
		{reply: &llm.Reply{ToolCalls: []llm.ToolCall{bad}}},
		{reply: &llm.Reply{Text: "done"}},
	}}
	orch := agent.NewOrchestrator(provider, datasetRegistry(t), 8, 2)

	// bad, good, bad: the success in between resets the failure streak,
	// so the limit of 2 consecutive failures is never reached.
	res, err := orch.Ask(context.Background(), "", "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Answer != "done" {
		t.Errorf("answer = %q", res.Answer)
	}
}

func TestAskEndpointRetriesOnce(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{err: errors.New("connection refused")},
		{reply: &llm.Reply{Text: "recovered"}},
	}}
	orch := agent.NewOrchestrator(provider, datasetRegistry(t), 8, 3)

	res, err := orch.Ask(context.Background(), "", "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Answer != "recovered" {
		t.Errorf("answer = %q", res.Answer)
	}
	if len(provider.calls) != 2 {
		t.Errorf("provider called %d times, want 2", len(provider.calls))
	}
}

func TestAskEndpointFailsAfterRetry(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
	}}
	orch := agent.NewOrchestrator(provider, datasetRegistry(t), 8, 3)

	_, err := orch.Ask(context.Background(), "", "q")
	var orchErr *agent.OrchestrationError
	if !errors.As(err, &orchErr) {
		t.Fatalf("expected *OrchestrationError, got %v", err)
	}
	if len(provider.calls) != 2 {
		t.Errorf("provider called %d times, want exactly 2", len(provider.calls))
	}
}

func TestAskNoRetryOnDeadContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{steps: []step{
		{err: ctx.Err()},
		{reply: &llm.Reply{Text: "should not be reached"}},
	}}
	orch := agent.NewOrchestrator(provider, datasetRegistry(t), 8, 3)

	_, err := orch.Ask(ctx, "", "q")
	var orchErr *agent.OrchestrationError
	if !errors.As(err, &orchErr) {
		t.Fatalf("expected *OrchestrationError, got %v", err)
	}
	if len(provider.calls) != 1 {
		t.Errorf("provider called %d times, want 1 (no retry after cancel)", len(provider.calls))
	}
}

func TestAskMaxRounds(t *testing.T) {
	call := llm.ToolCall{ID: "call_0", Name: "dataset_schema", Arguments: map[string]interface{}{}}
	var steps []step
	for i := 0; i < 5; i++ {
		steps = append(steps, step{reply: &llm.Reply{ToolCalls: []llm.ToolCall{call}}})
	}
	provider := &scriptedProvider{steps: steps}
	orch := agent.NewOrchestrator(provider, datasetRegistry(t), 3, 10)

	_, err := orch.Ask(context.Background(), "", "q")
	var orchErr *agent.OrchestrationError
	if !errors.As(err, &orchErr) {
		t.Fatalf("expected *OrchestrationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "3 rounds") {
		t.Errorf("error = %v, want round limit mention", err)
	}
	if len(provider.calls) != 3 {
		t.Errorf("provider called %d times, want 3", len(provider.calls))
	}
}

func TestAskUnknownToolFeedsErrorBack(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{reply: &llm.Reply{ToolCalls: []llm.ToolCall{{ID: "call_0", Name: "does_not_exist"}}}},
		{reply: &llm.Reply{Text: "I cannot use that tool."}},
	}}
	orch := agent.NewOrchestrator(provider, datasetRegistry(t), 8, 3)

	res, err := orch.Ask(context.Background(), "", "q")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Answer == "" {
		t.Error("expected an answer after the unknown-tool error was fed back")
	}

	second := provider.calls[1]
	last := second[len(second)-1]
	if !last.IsError || !strings.Contains(last.Content, "unknown tool") {
		t.Errorf("unknown-tool result = %+v", last)
	}
}

func TestAskToolResultsMasked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("email,amount\nalice@example.com,10\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	ds, err := dataset.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	reg, err := tools.NewRegistry(tools.DatasetTools(dataset.NewCalculator(ds), security.NewDataMasker(nil), true)...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	provider := &scriptedProvider{steps: []step{
		{reply: &llm.Reply{ToolCalls: []llm.ToolCall{{
			ID:        "call_0",
			Name:      "sample_rows",
			Arguments: map[string]interface{}{},
		}}}},
		{reply: &llm.Reply{Text: "One row, masked."}},
	}}
	orch := agent.NewOrchestrator(provider, reg, 8, 3)

	if _, err := orch.Ask(context.Background(), "", "show me a row"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	// The tool result fed back to the model must not carry raw emails.
	second := provider.calls[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleTool {
		t.Fatalf("last message = %+v", last)
	}
	if strings.Contains(last.Content, "alice@example.com") {
		t.Errorf("tool result leaks raw email: %s", last.Content)
	}
	if !strings.Contains(last.Content, "al***@***.com") {
		t.Errorf("tool result missing masked email: %s", last.Content)
	}
}
