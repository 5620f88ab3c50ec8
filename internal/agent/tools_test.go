// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletpilot-dev/walletpilot/internal/action"
	"github.com/walletpilot-dev/walletpilot/internal/catalog"
	"github.com/walletpilot-dev/walletpilot/internal/custody"
	"github.com/walletpilot-dev/walletpilot/internal/ledger"
	"github.com/walletpilot-dev/walletpilot/internal/wallet"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// fakeGateway serves one user with one wallet holding ETH and USDC.
type fakeGateway struct {
	custody.Gateway

	challengeCalls int
}

func (f *fakeGateway) ListWallets(_ context.Context, _ *custody.Credential) ([]custody.Wallet, error) {
	return []custody.Wallet{
		{ID: "w-1", Address: "0xabc", Blockchain: "ETH-SEPOLIA", State: "LIVE"},
	}, nil
}

func (f *fakeGateway) GetBalances(_ context.Context, _ *custody.Credential, walletID string) ([]custody.Balance, error) {
	return []custody.Balance{
		{Token: custody.Token{ID: "t-eth", Symbol: "ETH"}, Amount: "1.5"},
		{Token: custody.Token{ID: "t-usdc", Symbol: "USDC"}, Amount: "10"},
	}, nil
}

func (f *fakeGateway) CreateTransferChallenge(_ context.Context, _ *custody.Credential, req custody.TransferRequest) (*custody.Challenge, error) {
	f.challengeCalls++
	return &custody.Challenge{ID: "ch-1"}, nil
}

func newToolsetFixture(t *testing.T) (*Toolset, *fakeGateway) {
	t.Helper()

	gw := &fakeGateway{}
	verifier := wallet.NewVerifier(gw)
	cat := catalog.New()

	engine, err := action.NewEngine(action.EngineConfig{
		Gateway:          gw,
		Ownership:        verifier,
		Catalog:          cat,
		Ledger:           ledger.NewMemoryLedger(),
		RecipientAddress: "0xmerchant",
	})
	require.NoError(t, err)

	ts, err := NewToolset(ToolsetConfig{
		Gateway:         gw,
		Ownership:       verifier,
		Engine:          engine,
		Catalog:         cat,
		Credential:      &custody.Credential{UserToken: "ut-1", EncryptionKey: "ek-1"},
		DefaultWalletID: "w-1",
	})
	require.NoError(t, err)
	return ts, gw
}

func TestNewToolset_RequiresCredential(t *testing.T) {
	gw := &fakeGateway{}
	verifier := wallet.NewVerifier(gw)
	cat := catalog.New()
	engine, err := action.NewEngine(action.EngineConfig{
		Gateway:          gw,
		Ownership:        verifier,
		Catalog:          cat,
		Ledger:           ledger.NewMemoryLedger(),
		RecipientAddress: "0xmerchant",
	})
	require.NoError(t, err)

	_, err = NewToolset(ToolsetConfig{
		Gateway:   gw,
		Ownership: verifier,
		Engine:    engine,
		Catalog:   cat,
	})
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeAuthCredentialRequired, piloterr.CodeOf(err))
}

func TestToolset_Definitions(t *testing.T) {
	ts, _ := newToolsetFixture(t)

	names := make([]string, 0)
	for _, d := range ts.Definitions() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"list_wallets", "get_balance", "list_items", "propose_transfer", "buy_item"}, names)
}

func TestToolset_ListWallets(t *testing.T) {
	ts, _ := newToolsetFixture(t)

	out, err := ts.Dispatch(context.Background(), "list_wallets", "")
	require.NoError(t, err)
	assert.Contains(t, out, "w-1")
	assert.Contains(t, out, "0xabc")
}

func TestToolset_GetBalanceDefaultsWallet(t *testing.T) {
	ts, _ := newToolsetFixture(t)

	out, err := ts.Dispatch(context.Background(), "get_balance", "{}")
	require.NoError(t, err)
	assert.Contains(t, out, "ETH")
	assert.Contains(t, out, "1.5")
}

func TestToolset_GetBalanceForeignWalletDenied(t *testing.T) {
	ts, _ := newToolsetFixture(t)

	_, err := ts.Dispatch(context.Background(), "get_balance", `{"wallet_id":"w-other"}`)
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeWalletOwnershipDenied, piloterr.CodeOf(err))
}

func TestToolset_ListItems(t *testing.T) {
	ts, _ := newToolsetFixture(t)

	out, err := ts.Dispatch(context.Background(), "list_items", "")
	require.NoError(t, err)
	assert.Contains(t, out, "coffee")
}

func TestToolset_ProposeTransferEmitsMarkedAction(t *testing.T) {
	ts, gw := newToolsetFixture(t)

	out, err := ts.Dispatch(context.Background(), "propose_transfer",
		`{"token_id":"t-eth","destination_address":"0xdef","amount":"0.25"}`)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.challengeCalls)

	pa, ok := ExtractPendingAction(out)
	require.True(t, ok)
	assert.Equal(t, action.KindTransfer, pa.Kind)
	assert.Equal(t, action.StatePrepared, pa.State)
	assert.Equal(t, "w-1", pa.WalletID, "defaults to the request wallet")
	assert.Equal(t, "0.25", pa.Amount)
	assert.NotEmpty(t, StripMarkers(out), "prose for the model follows the payload")
}

func TestToolset_ProposeTransferInsufficientBalanceNoChallenge(t *testing.T) {
	ts, gw := newToolsetFixture(t)

	_, err := ts.Dispatch(context.Background(), "propose_transfer",
		`{"token_id":"t-eth","destination_address":"0xdef","amount":"2"}`)
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeActionBalanceInsufficient, piloterr.CodeOf(err))
	assert.Equal(t, 0, gw.challengeCalls)
}

func TestToolset_BuyItemEmitsMarkedAction(t *testing.T) {
	ts, _ := newToolsetFixture(t)

	out, err := ts.Dispatch(context.Background(), "buy_item", `{"item_id":"coffee"}`)
	require.NoError(t, err)

	pa, ok := ExtractPendingAction(out)
	require.True(t, ok)
	assert.Equal(t, action.KindPurchase, pa.Kind)
	assert.Equal(t, "coffee", pa.ItemID)
	assert.Equal(t, "0.5", pa.Price)
}

func TestToolset_MalformedArgumentsRejected(t *testing.T) {
	ts, _ := newToolsetFixture(t)

	_, err := ts.Dispatch(context.Background(), "buy_item", `{"item_id":`)
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeAgentLoopInvalidInput, piloterr.CodeOf(err))
}

func TestToolset_UnknownTool(t *testing.T) {
	ts, _ := newToolsetFixture(t)

	_, err := ts.Dispatch(context.Background(), "launch_rocket", "{}")
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeAgentToolUnknown, piloterr.CodeOf(err))
}
