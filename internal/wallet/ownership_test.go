// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package wallet_test

import (
	"context"
	"testing"

	"github.com/walletpilot-dev/walletpilot/internal/custody"
	"github.com/walletpilot-dev/walletpilot/internal/wallet"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway implements custody.Gateway with canned wallet lists and
// per-operation call counters.
type fakeGateway struct {
	custody.Gateway

	wallets       []custody.Wallet
	listErr       error
	listCallCount int
}

func (f *fakeGateway) ListWallets(_ context.Context, _ *custody.Credential) ([]custody.Wallet, error) {
	f.listCallCount++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.wallets, nil
}

func TestVerifyOwnershipMember(t *testing.T) {
	gw := &fakeGateway{wallets: []custody.Wallet{{ID: "w1"}, {ID: "w2"}}}
	v := wallet.NewVerifier(gw)

	err := v.VerifyOwnership(context.Background(), &custody.Credential{UserToken: "u"}, "w2")
	require.NoError(t, err)
	assert.Equal(t, 1, gw.listCallCount)
}

func TestVerifyOwnershipDenied(t *testing.T) {
	gw := &fakeGateway{wallets: []custody.Wallet{{ID: "w1"}}}
	v := wallet.NewVerifier(gw)

	err := v.VerifyOwnership(context.Background(), &custody.Credential{UserToken: "u"}, "w-other")
	require.Error(t, err)
	assert.True(t, piloterr.HasCode(err, piloterr.CodeWalletOwnershipDenied))
}

// The denial surface must be identical whether the wallet id exists under
// another account or not at all.
func TestVerifyOwnershipDenialIsIndistinguishable(t *testing.T) {
	gw := &fakeGateway{wallets: []custody.Wallet{{ID: "w1"}}}
	v := wallet.NewVerifier(gw)

	errForeign := v.VerifyOwnership(context.Background(), &custody.Credential{UserToken: "u"}, "w-owned-by-someone-else")
	errAbsent := v.VerifyOwnership(context.Background(), &custody.Credential{UserToken: "u"}, "w-never-existed")

	require.Error(t, errForeign)
	require.Error(t, errAbsent)
	assert.Equal(t, piloterr.CodeOf(errForeign), piloterr.CodeOf(errAbsent))
}

// Each verification must hit the gateway fresh; no cross-request caching.
func TestVerifyOwnershipRefetchesPerCall(t *testing.T) {
	gw := &fakeGateway{wallets: []custody.Wallet{{ID: "w1"}}}
	v := wallet.NewVerifier(gw)
	ctx := context.Background()
	cred := &custody.Credential{UserToken: "u"}

	require.NoError(t, v.VerifyOwnership(ctx, cred, "w1"))
	require.NoError(t, v.VerifyOwnership(ctx, cred, "w1"))
	assert.Equal(t, 2, gw.listCallCount)
}

func TestVerifyOwnershipEmptyID(t *testing.T) {
	gw := &fakeGateway{}
	v := wallet.NewVerifier(gw)

	err := v.VerifyOwnership(context.Background(), &custody.Credential{UserToken: "u"}, "")
	require.Error(t, err)
	assert.Equal(t, 0, gw.listCallCount, "empty id should be rejected before any gateway call")
}

func TestDefaultWallet(t *testing.T) {
	gw := &fakeGateway{wallets: []custody.Wallet{{ID: "w1"}, {ID: "w2"}}}
	v := wallet.NewVerifier(gw)

	w, err := v.DefaultWallet(context.Background(), &custody.Credential{UserToken: "u"})
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)
}

func TestDefaultWalletNoneAvailable(t *testing.T) {
	gw := &fakeGateway{}
	v := wallet.NewVerifier(gw)

	_, err := v.DefaultWallet(context.Background(), &custody.Credential{UserToken: "u"})
	require.Error(t, err)
	assert.True(t, piloterr.HasCode(err, piloterr.CodeWalletNoneAvailable))
}
