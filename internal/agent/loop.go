// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/walletpilot-dev/walletpilot/internal/action"
	"github.com/walletpilot-dev/walletpilot/internal/provider"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// maxToolIterations bounds the tool loop (LLM call → tool dispatch → re-call)
// so a model that keeps requesting tools cannot run up cost and latency
// without limit.
const maxToolIterations = 5

const defaultSystemPrompt = `You are Walletpilot, an assistant that manages the user's crypto wallets.
You can read wallets and balances, list the item catalog, and prepare transfers or purchases.
Preparing an action never moves funds: the user must approve a signature prompt in their browser.
Amounts are decimal strings. Never invent wallet ids or balances; use the tools.`

// Result is the outcome of one chat turn.
type Result struct {
	// Text is the model's final prose. At the iteration bound this is the
	// last available text and may be incomplete.
	Text string
	// PendingAction is the last action proposed by a tool during the turn,
	// if any. Only one signature prompt can be shown to the user at a time.
	PendingAction *action.PendingAction
	Usage         *provider.Usage
}

// LoopConfig holds dependencies for the Loop.
type LoopConfig struct {
	Registry     *provider.Registry
	Model        string // "provider/model" ref; empty uses the registry default
	SystemPrompt string
	MaxTokens    int
}

// Loop drives a bounded model completion with tools bound.
type Loop struct {
	registry     *provider.Registry
	model        string
	systemPrompt string
	maxTokens    int
}

// NewLoop creates a Loop. Returns an error if the registry is missing.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if cfg.Registry == nil {
		return nil, piloterr.New(piloterr.CodeAgentLoopInvalidInput, "Registry is required")
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}

	return &Loop{
		registry:     cfg.Registry,
		model:        cfg.Model,
		systemPrompt: prompt,
		maxTokens:    cfg.MaxTokens,
	}, nil
}

// Run executes one chat turn: call the model with the request's tools bound,
// fan out any requested tool calls, feed the results back, and repeat until
// the model answers in prose or the iteration bound is reached. Tool failures
// are recovered into error-text results the model can react to; model
// transport errors abort the turn.
func (l *Loop) Run(ctx context.Context, tools *Toolset, userMessage string) (*Result, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, piloterr.New(piloterr.CodeAgentLoopInvalidInput, "message must not be empty")
	}
	if tools == nil {
		return nil, piloterr.New(piloterr.CodeAgentLoopInvalidInput, "toolset is required")
	}

	prov, model, err := l.registry.Route(ctx, l.model)
	if err != nil {
		return nil, err
	}

	messages := []provider.Message{
		{Role: provider.MessageRoleUser, Content: userMessage},
	}

	var pending *action.PendingAction

	text, toolCalls, usage, err := l.callModel(ctx, prov, model, tools, messages)
	if err != nil {
		return nil, err
	}

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		if len(toolCalls) == 0 {
			break
		}

		// Persist the assistant turn, including its tool calls, before the
		// results. The replayed history must pair every tool result with
		// the call that requested it or the next completion is rejected.
		messages = append(messages, provider.Message{
			Role:      provider.MessageRoleAssistant,
			Content:   text,
			ToolCalls: toolCalls,
		})

		results := l.dispatchAll(ctx, tools, toolCalls)
		for i, tc := range toolCalls {
			content := results[i]
			if pa, ok := ExtractPendingAction(content); ok {
				// Only one pending action survives a turn; the last
				// observed wins.
				pending = pa
			}
			messages = append(messages, provider.Message{
				Role:       provider.MessageRoleTool,
				Content:    StripMarkers(content),
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
			})
		}

		text, toolCalls, usage, err = l.callModel(ctx, prov, model, tools, messages)
		if err != nil {
			return nil, err
		}
	}

	if len(toolCalls) > 0 {
		// Iteration bound reached with the model still requesting tools.
		// Return the last available text; it may be incomplete, which is a
		// documented degradation rather than a silent failure.
		slog.Warn("tool loop hit iteration bound", "iterations", maxToolIterations)
	}

	return &Result{
		Text:          text,
		PendingAction: pending,
		Usage:         usage,
	}, nil
}

// callModel performs one completion and collects its text, tool calls, and
// usage. A stream error discards partial output and fails the turn.
func (l *Loop) callModel(ctx context.Context, prov provider.Provider, model string, tools *Toolset, messages []provider.Message) (string, []*provider.ToolCall, *provider.Usage, error) {
	req := provider.ChatRequest{
		Model:        model,
		Messages:     messages,
		Tools:        tools.Definitions(),
		SystemPrompt: l.systemPrompt,
		Options:      provider.ChatOptions{MaxTokens: l.maxTokens},
	}

	eventCh, err := prov.Chat(ctx, req)
	if err != nil {
		return "", nil, nil, piloterr.Wrapf(err, piloterr.CodeProviderUpstreamFailure, "chat call to %s", prov.Name())
	}

	var buf strings.Builder
	var toolCalls []*provider.ToolCall
	var usage *provider.Usage
	var streamErr error

	for ev := range eventCh {
		switch ev.Type {
		case provider.EventTypeTextDelta:
			buf.WriteString(ev.Text)
		case provider.EventTypeToolCall:
			if ev.ToolCall != nil {
				toolCalls = append(toolCalls, ev.ToolCall)
			}
		case provider.EventTypeUsage:
			usage = ev.Usage
		case provider.EventTypeDone:
			if ev.Usage != nil {
				usage = ev.Usage
			}
		case provider.EventTypeError:
			streamErr = piloterr.New(piloterr.CodeProviderUpstreamFailure, ev.Error)
		}
	}

	if streamErr != nil {
		return "", nil, nil, streamErr
	}
	return buf.String(), toolCalls, usage, nil
}

// dispatchAll executes the turn's tool calls concurrently and joins on all of
// them, routing results back by position. Tools in the same turn are
// independent and side-effect-isolated, so they can run in parallel; a tool
// error or panic becomes an error-text result so the model can react to the
// failure instead of the turn aborting.
func (l *Loop) dispatchAll(ctx context.Context, tools *Toolset, calls []*provider.ToolCall) []string {
	results := make([]string, len(calls))

	var wg sync.WaitGroup
	for i, tc := range calls {
		wg.Add(1)
		go func(i int, tc *provider.ToolCall) {
			defer wg.Done()
			results[i] = l.runTool(ctx, tools, tc)
		}(i, tc)
	}
	wg.Wait()

	return results
}

func (l *Loop) runTool(ctx context.Context, tools *Toolset, tc *provider.ToolCall) (content string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool panicked", "tool", tc.Name, "panic", r)
			content = fmt.Sprintf("error: tool %s failed unexpectedly", tc.Name)
		}
	}()

	out, err := tools.Dispatch(ctx, tc.Name, tc.Arguments)
	if err != nil {
		slog.Warn("tool call failed", "tool", tc.Name, "error", err)
		return "error: " + err.Error()
	}
	return out
}
