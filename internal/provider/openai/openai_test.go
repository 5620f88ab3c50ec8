// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package openai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletpilot-dev/walletpilot/internal/provider"
	"github.com/walletpilot-dev/walletpilot/internal/provider/openai"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	require.Error(t, err)

	p, err := openai.New(openai.Config{APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestBuildParams(t *testing.T) {
	req := provider.ChatRequest{
		Model:        "gpt-4.1-mini",
		SystemPrompt: "You manage wallets.",
		Messages: []provider.Message{
			{Role: provider.MessageRoleUser, Content: "buy me a coffee"},
		},
		Tools: []provider.ToolDefinition{
			{
				Name:        "buy_item",
				Description: "Prepares a purchase",
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"item_id": map[string]any{"type": "string"},
					},
					"required": []any{"item_id"},
				},
			},
		},
		Options: provider.ChatOptions{MaxTokens: 1024},
	}

	params, err := openai.BuildParams(req)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1-mini", string(params.Model))
	// System prompt is prepended, then the user message.
	assert.Len(t, params.Messages, 2)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "buy_item", params.Tools[0].GetFunction().Name)
	assert.True(t, params.StreamOptions.IncludeUsage.Valid())
}

func TestConvertMessages_ToolResult(t *testing.T) {
	msgs, err := openai.ConvertMessages([]provider.Message{
		{Role: provider.MessageRoleTool, ToolCallID: "call-7", Content: `{"wallets":[]}`},
	}, "")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestConvertMessages_AssistantToolCallsReplayed(t *testing.T) {
	msgs, err := openai.ConvertMessages([]provider.Message{
		{Role: provider.MessageRoleUser, Content: "what wallets do I have?"},
		{
			Role: provider.MessageRoleAssistant,
			ToolCalls: []*provider.ToolCall{
				{ID: "call-1", Name: "list_wallets", Arguments: "{}"},
			},
		},
		{Role: provider.MessageRoleTool, ToolCallID: "call-1", Content: `[{"id":"w-1"}]`},
	}, "")
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	// The replayed assistant turn carries the tool_calls the following
	// tool message answers.
	assistant := msgs[1].OfAssistant
	require.NotNil(t, assistant)
	require.Len(t, assistant.ToolCalls, 1)
	fn := assistant.ToolCalls[0].OfFunction
	require.NotNil(t, fn)
	assert.Equal(t, "call-1", fn.ID)
	assert.Equal(t, "list_wallets", fn.Function.Name)
	assert.Equal(t, "{}", fn.Function.Arguments)
}

func TestConvertMessages_RejectsUnknownRole(t *testing.T) {
	_, err := openai.ConvertMessages([]provider.Message{
		{Role: provider.MessageRole("weird"), Content: "?"},
	}, "")
	require.Error(t, err)
}
