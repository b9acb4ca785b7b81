package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient wraps the Anthropic SDK for Claude or any
// Anthropic-compatible endpoint reachable via a base URL override.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

func NewAnthropicClient(apiKey, model, baseURL string) *AnthropicClient {
	if model == "" {
		model = "claude-sonnet-4-6"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		client:    client,
		model:     model,
		maxTokens: 4096,
	}
}

// Chat converts the generic conversation to Anthropic message params, calls
// the Messages API once, and converts the response back.
func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, tools []ToolDef) (*Reply, error) {
	anthToolParams := make([]anthropic.ToolUnionUnionParam, len(tools))
	for i, t := range tools {
		var propsRaw interface{}
		if props, ok := t.InputSchema["properties"]; ok {
			propsRaw = props
		}
		schema := map[string]interface{}{
			"type":       "object",
			"properties": propsRaw,
		}
		if required, ok := t.InputSchema["required"]; ok {
			schema["required"] = required
		}
		anthToolParams[i] = anthropic.ToolParam{
			Name:        anthropic.String(t.Name),
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.F[interface{}](schema),
		}
	}

	systemPrompt, params, err := convertMessages(messages)
	if err != nil {
		return nil, err
	}

	newParams := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(c.model)),
		MaxTokens: anthropic.F(int64(c.maxTokens)),
		Messages:  anthropic.F(params),
	}
	if len(anthToolParams) > 0 {
		newParams.Tools = anthropic.F(anthToolParams)
	}
	if systemPrompt != "" {
		newParams.System = anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(systemPrompt),
		})
	}

	resp, err := c.client.Messages.New(ctx, newParams)
	if err != nil {
		return nil, fmt.Errorf("anthropic chat: %w", err)
	}

	reply := &Reply{}
	for _, block := range resp.Content {
		switch b := block.AsUnion().(type) {
		case anthropic.TextBlock:
			reply.Text += b.Text
		case anthropic.ToolUseBlock:
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				ID:        b.ID,
				Name:      b.Name,
				Arguments: parseToolArguments(b.Input),
			})
		}
	}
	return reply, nil
}

// convertMessages maps the generic conversation onto Anthropic params.
// Consecutive tool-result messages are folded into one user message, which
// is how the Messages API expects tool results back.
func convertMessages(messages []Message) (string, []anthropic.MessageParam, error) {
	var systemPrompt string
	var params []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			params = append(params, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			systemPrompt = m.Content
		case RoleUser:
			flushResults()
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			flushResults()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				blocks = append(blocks, anthropic.ToolUseBlockParam{
					Type:  anthropic.F(anthropic.ToolUseBlockParamTypeToolUse),
					ID:    anthropic.F(tc.ID),
					Name:  anthropic.F(tc.Name),
					Input: anthropic.F[interface{}](tc.Arguments),
				})
			}
			params = append(params, anthropic.NewAssistantMessage(blocks...))
		case RoleTool:
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		default:
			return "", nil, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}
	flushResults()

	return systemPrompt, params, nil
}

// Check is a no-op: the Messages API has no cheap liveness probe, and a paid
// round trip per health check is not acceptable.
func (c *AnthropicClient) Check(ctx context.Context) error { return nil }
