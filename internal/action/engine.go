// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package action

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/walletpilot-dev/walletpilot/internal/catalog"
	"github.com/walletpilot-dev/walletpilot/internal/custody"
	"github.com/walletpilot-dev/walletpilot/internal/ledger"
	"github.com/walletpilot-dev/walletpilot/internal/wallet"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// validFeeLevels is the closed set the custody gateway accepts.
var validFeeLevels = map[string]bool{"LOW": true, "MEDIUM": true, "HIGH": true}

// EngineConfig holds dependencies and purchase settlement parameters.
type EngineConfig struct {
	Gateway   custody.Gateway
	Ownership *wallet.Verifier
	Catalog   *catalog.Catalog
	Ledger    ledger.Ledger

	// RecipientAddress receives purchase payments.
	RecipientAddress string
	// SettlementSymbol is the token symbol purchases settle in (e.g. USDC).
	SettlementSymbol string
}

// Engine validates proposals and acquires signing challenges.
type Engine struct {
	gw        custody.Gateway
	ownership *wallet.Verifier
	catalog   *catalog.Catalog
	ledger    ledger.Ledger

	recipientAddress string
	settlementSymbol string
}

// NewEngine creates an Engine. Returns an error if a required dependency is missing.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Gateway == nil {
		return nil, piloterr.New(piloterr.CodeActionRequestInvalid, "Gateway is required")
	}
	if cfg.Ownership == nil {
		return nil, piloterr.New(piloterr.CodeActionRequestInvalid, "Ownership verifier is required")
	}
	if cfg.Catalog == nil {
		return nil, piloterr.New(piloterr.CodeActionRequestInvalid, "Catalog is required")
	}
	if cfg.Ledger == nil {
		return nil, piloterr.New(piloterr.CodeActionRequestInvalid, "Ledger is required")
	}
	if cfg.RecipientAddress == "" {
		return nil, piloterr.New(piloterr.CodeActionRequestInvalid, "RecipientAddress is required")
	}

	symbol := cfg.SettlementSymbol
	if symbol == "" {
		symbol = "USDC"
	}

	return &Engine{
		gw:               cfg.Gateway,
		ownership:        cfg.Ownership,
		catalog:          cfg.Catalog,
		ledger:           cfg.Ledger,
		recipientAddress: cfg.RecipientAddress,
		settlementSymbol: symbol,
	}, nil
}

// TransferInput is a proposed transfer before validation.
type TransferInput struct {
	WalletID           string
	TokenID            string
	DestinationAddress string
	Amount             string
	FeeLevel           string
}

// ProposeTransfer validates the transfer and acquires a signing challenge.
// Ownership and balance checks happen before the challenge-creation call:
// a validation failure must never leave a dangling challenge behind.
func (e *Engine) ProposeTransfer(ctx context.Context, cred *custody.Credential, in TransferInput) (*PendingAction, error) {
	amount, err := parseAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if in.TokenID == "" || in.DestinationAddress == "" {
		return nil, piloterr.New(piloterr.CodeActionRequestInvalid, "token id and destination address are required")
	}

	feeLevel := strings.ToUpper(in.FeeLevel)
	if feeLevel == "" {
		feeLevel = "MEDIUM"
	}
	if !validFeeLevels[feeLevel] {
		return nil, piloterr.Errorf(piloterr.CodeActionRequestInvalid, "fee level must be one of LOW, MEDIUM, HIGH, got %q", in.FeeLevel)
	}

	if err := e.ownership.VerifyOwnership(ctx, cred, in.WalletID); err != nil {
		return nil, err
	}

	available, err := e.balanceForTokenID(ctx, cred, in.WalletID, in.TokenID)
	if err != nil {
		return nil, err
	}
	if available.Cmp(amount) < 0 {
		return nil, insufficientBalance(in.WalletID, available, amount)
	}

	challenge, err := e.gw.CreateTransferChallenge(ctx, cred, custody.TransferRequest{
		WalletID:           in.WalletID,
		TokenID:            in.TokenID,
		DestinationAddress: in.DestinationAddress,
		Amount:             amount.String(),
		FeeLevel:           feeLevel,
		IdempotencyKey:     uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}

	slog.Info("transfer challenge prepared",
		"wallet_id", in.WalletID,
		"token_id", in.TokenID,
		"challenge_id", challenge.ID,
	)

	return &PendingAction{
		Kind:               KindTransfer,
		State:              StatePrepared,
		ChallengeID:        challenge.ID,
		WalletID:           in.WalletID,
		TokenID:            in.TokenID,
		DestinationAddress: in.DestinationAddress,
		Amount:             amount.String(),
		FeeLevel:           feeLevel,
	}, nil
}

// ProposePurchase validates the purchase and acquires a signing challenge
// paying the configured recipient the item's price in the settlement token.
func (e *Engine) ProposePurchase(ctx context.Context, cred *custody.Credential, itemID, walletID string) (*PendingAction, error) {
	item, err := e.catalog.Get(itemID)
	if err != nil {
		return nil, err
	}
	price, err := e.catalog.ResolvePrice(itemID)
	if err != nil {
		return nil, err
	}

	if err := e.ownership.VerifyOwnership(ctx, cred, walletID); err != nil {
		return nil, err
	}

	settlement, err := e.settlementBalance(ctx, cred, walletID)
	if err != nil {
		return nil, err
	}
	if settlement.amount.Cmp(price) < 0 {
		return nil, insufficientBalance(walletID, settlement.amount, price)
	}

	challenge, err := e.gw.CreateTransferChallenge(ctx, cred, custody.TransferRequest{
		WalletID:           walletID,
		TokenID:            settlement.tokenID,
		DestinationAddress: e.recipientAddress,
		Amount:             price.String(),
		FeeLevel:           "MEDIUM",
		IdempotencyKey:     uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}

	slog.Info("purchase challenge prepared",
		"wallet_id", walletID,
		"item_id", item.ID,
		"challenge_id", challenge.ID,
	)

	return &PendingAction{
		Kind:        KindPurchase,
		State:       StatePrepared,
		ChallengeID: challenge.ID,
		WalletID:    walletID,
		ItemID:      item.ID,
		Price:       price.String(),
	}, nil
}

// ConfirmPurchase records the entitlement after the client reports a signed
// challenge. It trusts the caller that signing succeeded; settlement is not
// verified against the chain before recording (see DESIGN.md).
func (e *Engine) ConfirmPurchase(ctx context.Context, walletID, itemID string) error {
	if walletID == "" || itemID == "" {
		return piloterr.New(piloterr.CodeActionRequestInvalid, "wallet id and item id are required")
	}
	if _, err := e.catalog.Get(itemID); err != nil {
		return err
	}
	return e.ledger.Record(ctx, walletID, itemID)
}

// Purchases lists the item ids the wallet holds entitlements for, in the
// order they were recorded.
func (e *Engine) Purchases(ctx context.Context, walletID string) ([]string, error) {
	if walletID == "" {
		return nil, piloterr.New(piloterr.CodeActionRequestInvalid, "wallet id is required")
	}
	return e.ledger.Items(ctx, walletID)
}

func (e *Engine) balanceForTokenID(ctx context.Context, cred *custody.Credential, walletID, tokenID string) (decimal.Decimal, error) {
	balances, err := e.gw.GetBalances(ctx, cred, walletID)
	if err != nil {
		return decimal.Decimal{}, err
	}

	for _, b := range balances {
		if b.Token.ID != tokenID {
			continue
		}
		amount, err := decimal.NewFromString(b.Amount)
		if err != nil {
			return decimal.Decimal{}, piloterr.Wrapf(err, piloterr.CodeCustodyUpstreamFailure, "parsing balance %q for token %s", b.Amount, tokenID)
		}
		return amount, nil
	}

	// A token with no balance entry has a zero balance.
	return decimal.Zero, nil
}

type settlementBalance struct {
	tokenID string
	amount  decimal.Decimal
}

func (e *Engine) settlementBalance(ctx context.Context, cred *custody.Credential, walletID string) (settlementBalance, error) {
	balances, err := e.gw.GetBalances(ctx, cred, walletID)
	if err != nil {
		return settlementBalance{}, err
	}

	for _, b := range balances {
		if !strings.EqualFold(b.Token.Symbol, e.settlementSymbol) {
			continue
		}
		amount, err := decimal.NewFromString(b.Amount)
		if err != nil {
			return settlementBalance{}, piloterr.Wrapf(err, piloterr.CodeCustodyUpstreamFailure, "parsing %s balance %q", e.settlementSymbol, b.Amount)
		}
		return settlementBalance{tokenID: b.Token.ID, amount: amount}, nil
	}

	return settlementBalance{amount: decimal.Zero}, nil
}

// parseAmount parses a user- or model-supplied decimal amount string.
// Amounts are compared as decimals, never as binary floats.
func parseAmount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Decimal{}, piloterr.New(piloterr.CodeActionAmountInvalid, "amount must not be empty")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, piloterr.Errorf(piloterr.CodeActionAmountInvalid, "amount %q is not a valid decimal", raw)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, piloterr.Errorf(piloterr.CodeActionAmountInvalid, "amount must be positive, got %s", raw)
	}
	return amount, nil
}

func insufficientBalance(walletID string, available, requested decimal.Decimal) error {
	return piloterr.New(
		piloterr.CodeActionBalanceInsufficient,
		"insufficient balance: have "+available.String()+", need "+requested.String(),
		piloterr.FieldWalletID(walletID),
		piloterr.Field("available", available.String()),
		piloterr.Field("requested", requested.String()),
	)
}
