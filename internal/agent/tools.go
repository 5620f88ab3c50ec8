// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package agent

import (
	"context"
	"encoding/json"

	"github.com/walletpilot-dev/walletpilot/internal/action"
	"github.com/walletpilot-dev/walletpilot/internal/catalog"
	"github.com/walletpilot-dev/walletpilot/internal/custody"
	"github.com/walletpilot-dev/walletpilot/internal/provider"
	"github.com/walletpilot-dev/walletpilot/internal/wallet"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// Tool pairs a schema declaration for the model with its handler.
type Tool struct {
	Definition provider.ToolDefinition
	Run        func(ctx context.Context, arguments string) (string, error)
}

// Toolset is the closed set of tools for one chat request. It is built fresh
// per request around the session's wallet credential; tools are never shared
// across sessions.
type Toolset struct {
	tools map[string]Tool
	order []string
}

// ToolsetConfig holds the per-request dependencies the tools close over.
type ToolsetConfig struct {
	Gateway    custody.Gateway
	Ownership  *wallet.Verifier
	Engine     *action.Engine
	Catalog    *catalog.Catalog
	Credential *custody.Credential

	// DefaultWalletID is used when the model omits a wallet id.
	DefaultWalletID string
}

// NewToolset builds the request's tool registry.
func NewToolset(cfg ToolsetConfig) (*Toolset, error) {
	if cfg.Gateway == nil || cfg.Ownership == nil || cfg.Engine == nil || cfg.Catalog == nil {
		return nil, piloterr.New(piloterr.CodeAgentLoopInvalidInput, "Gateway, Ownership, Engine, and Catalog are required")
	}
	if cfg.Credential == nil {
		return nil, piloterr.New(piloterr.CodeAuthCredentialRequired, "wallet credential is required to build tools")
	}

	ts := &Toolset{tools: make(map[string]Tool)}
	ts.add(listWalletsTool(cfg))
	ts.add(getBalanceTool(cfg))
	ts.add(listItemsTool(cfg))
	ts.add(proposeTransferTool(cfg))
	ts.add(buyItemTool(cfg))
	return ts, nil
}

func (ts *Toolset) add(t Tool) {
	ts.tools[t.Definition.Name] = t
	ts.order = append(ts.order, t.Definition.Name)
}

// Definitions returns the tool declarations in registration order for
// inclusion in ChatRequest.Tools.
func (ts *Toolset) Definitions() []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(ts.order))
	for _, name := range ts.order {
		defs = append(defs, ts.tools[name].Definition)
	}
	return defs
}

// Dispatch runs the named tool. Unknown tool names are an error for the
// caller to convert into an error-text result.
func (ts *Toolset) Dispatch(ctx context.Context, name, arguments string) (string, error) {
	t, ok := ts.tools[name]
	if !ok {
		return "", piloterr.New(piloterr.CodeAgentToolUnknown, "unknown tool: "+name)
	}
	return t.Run(ctx, arguments)
}

// decodeArgs parses the model-supplied JSON arguments into a typed struct.
// An empty argument string is treated as an empty object.
func decodeArgs(arguments string, v any) error {
	if arguments == "" {
		arguments = "{}"
	}
	if err := json.Unmarshal([]byte(arguments), v); err != nil {
		return piloterr.Wrapf(err, piloterr.CodeAgentLoopInvalidInput, "decoding tool arguments")
	}
	return nil
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		req := make([]any, 0, len(required))
		for _, r := range required {
			req = append(req, r)
		}
		schema["required"] = req
	}
	return schema
}

func listWalletsTool(cfg ToolsetConfig) Tool {
	return Tool{
		Definition: provider.ToolDefinition{
			Name:        "list_wallets",
			Description: "Lists the wallets owned by the current user, with id, address, and blockchain.",
			InputSchema: objectSchema(map[string]any{}),
		},
		Run: func(ctx context.Context, _ string) (string, error) {
			wallets, err := cfg.Gateway.ListWallets(ctx, cfg.Credential)
			if err != nil {
				return "", err
			}
			payload, err := json.Marshal(wallets)
			if err != nil {
				return "", err
			}
			return string(payload), nil
		},
	}
}

type getBalanceArgs struct {
	WalletID string `json:"wallet_id"`
}

func getBalanceTool(cfg ToolsetConfig) Tool {
	return Tool{
		Definition: provider.ToolDefinition{
			Name:        "get_balance",
			Description: "Reads token balances for a wallet. Omit wallet_id to use the user's default wallet.",
			InputSchema: objectSchema(map[string]any{
				"wallet_id": map[string]any{"type": "string", "description": "Wallet id, defaults to the user's wallet"},
			}),
		},
		Run: func(ctx context.Context, arguments string) (string, error) {
			var args getBalanceArgs
			if err := decodeArgs(arguments, &args); err != nil {
				return "", err
			}
			walletID := args.WalletID
			if walletID == "" {
				walletID = cfg.DefaultWalletID
			}
			if err := cfg.Ownership.VerifyOwnership(ctx, cfg.Credential, walletID); err != nil {
				return "", err
			}
			balances, err := cfg.Gateway.GetBalances(ctx, cfg.Credential, walletID)
			if err != nil {
				return "", err
			}
			payload, err := json.Marshal(balances)
			if err != nil {
				return "", err
			}
			return string(payload), nil
		},
	}
}

func listItemsTool(cfg ToolsetConfig) Tool {
	return Tool{
		Definition: provider.ToolDefinition{
			Name:        "list_items",
			Description: "Lists the purchasable catalog items with ids and prices.",
			InputSchema: objectSchema(map[string]any{}),
		},
		Run: func(ctx context.Context, _ string) (string, error) {
			payload, err := json.Marshal(cfg.Catalog.List())
			if err != nil {
				return "", err
			}
			return string(payload), nil
		},
	}
}

type proposeTransferArgs struct {
	WalletID           string `json:"wallet_id"`
	TokenID            string `json:"token_id"`
	DestinationAddress string `json:"destination_address"`
	Amount             string `json:"amount"`
	FeeLevel           string `json:"fee_level"`
}

func proposeTransferTool(cfg ToolsetConfig) Tool {
	return Tool{
		Definition: provider.ToolDefinition{
			Name:        "propose_transfer",
			Description: "Prepares a token transfer for the user to sign. Validates ownership and balance first; nothing moves until the user signs in their browser.",
			InputSchema: objectSchema(map[string]any{
				"wallet_id":           map[string]any{"type": "string", "description": "Source wallet id, defaults to the user's wallet"},
				"token_id":            map[string]any{"type": "string", "description": "Token id to send"},
				"destination_address": map[string]any{"type": "string", "description": "Recipient blockchain address"},
				"amount":              map[string]any{"type": "string", "description": "Decimal amount as a string, e.g. \"0.25\""},
				"fee_level":           map[string]any{"type": "string", "description": "LOW, MEDIUM, or HIGH; defaults to MEDIUM"},
			}, "token_id", "destination_address", "amount"),
		},
		Run: func(ctx context.Context, arguments string) (string, error) {
			var args proposeTransferArgs
			if err := decodeArgs(arguments, &args); err != nil {
				return "", err
			}
			walletID := args.WalletID
			if walletID == "" {
				walletID = cfg.DefaultWalletID
			}
			pa, err := cfg.Engine.ProposeTransfer(ctx, cfg.Credential, action.TransferInput{
				WalletID:           walletID,
				TokenID:            args.TokenID,
				DestinationAddress: args.DestinationAddress,
				Amount:             args.Amount,
				FeeLevel:           args.FeeLevel,
			})
			if err != nil {
				return "", err
			}
			return WrapPendingAction(pa,
				"Transfer of "+pa.Amount+" prepared. Tell the user to approve the signature prompt to send it.")
		},
	}
}

type buyItemArgs struct {
	WalletID string `json:"wallet_id"`
	ItemID   string `json:"item_id"`
}

func buyItemTool(cfg ToolsetConfig) Tool {
	return Tool{
		Definition: provider.ToolDefinition{
			Name:        "buy_item",
			Description: "Prepares the purchase of a catalog item for the user to sign. Validates ownership and balance first.",
			InputSchema: objectSchema(map[string]any{
				"wallet_id": map[string]any{"type": "string", "description": "Paying wallet id, defaults to the user's wallet"},
				"item_id":   map[string]any{"type": "string", "description": "Catalog item id, see list_items"},
			}, "item_id"),
		},
		Run: func(ctx context.Context, arguments string) (string, error) {
			var args buyItemArgs
			if err := decodeArgs(arguments, &args); err != nil {
				return "", err
			}
			walletID := args.WalletID
			if walletID == "" {
				walletID = cfg.DefaultWalletID
			}
			pa, err := cfg.Engine.ProposePurchase(ctx, cfg.Credential, args.ItemID, walletID)
			if err != nil {
				return "", err
			}
			return WrapPendingAction(pa,
				"Purchase of "+pa.ItemID+" for "+pa.Price+" prepared. Tell the user to approve the signature prompt to complete it.")
		},
	}
}
