// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

// Package wallet re-derives wallet ownership from the custody gateway.
// Ownership is never cached or stored locally: it is a fact about the live
// membership list for the current credential, re-checked per request.
package wallet

import (
	"context"

	"github.com/walletpilot-dev/walletpilot/internal/custody"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// ownershipDeniedMsg is deliberately identical whether the wallet belongs to
// someone else or does not exist at all, so responses cannot be used to
// enumerate other users' wallet ids.
const ownershipDeniedMsg = "wallet not available to this account"

// Verifier checks wallet membership against the custody gateway.
type Verifier struct {
	gw custody.Gateway
}

// NewVerifier returns a Verifier backed by the given gateway.
func NewVerifier(gw custody.Gateway) *Verifier {
	return &Verifier{gw: gw}
}

// VerifyOwnership confirms walletID is in the live wallet list for cred.
// The list is fetched fresh; no list older than the current request is trusted.
func (v *Verifier) VerifyOwnership(ctx context.Context, cred *custody.Credential, walletID string) error {
	if walletID == "" {
		return piloterr.New(piloterr.CodeActionRequestInvalid, "wallet id must not be empty")
	}

	wallets, err := v.gw.ListWallets(ctx, cred)
	if err != nil {
		return piloterr.Wrapf(err, piloterr.CodeCustodyUpstreamFailure, "verifying ownership of wallet %s", walletID)
	}

	for _, w := range wallets {
		if w.ID == walletID {
			return nil
		}
	}

	return piloterr.New(piloterr.CodeWalletOwnershipDenied, ownershipDeniedMsg, piloterr.FieldWalletID(walletID))
}

// DefaultWallet returns the first wallet owned by the credential, used when
// a chat request omits an explicit wallet id.
func (v *Verifier) DefaultWallet(ctx context.Context, cred *custody.Credential) (*custody.Wallet, error) {
	wallets, err := v.gw.ListWallets(ctx, cred)
	if err != nil {
		return nil, piloterr.Wrapf(err, piloterr.CodeCustodyUpstreamFailure, "listing wallets for default selection")
	}
	if len(wallets) == 0 {
		return nil, piloterr.New(piloterr.CodeWalletNoneAvailable, "no wallets exist for this account")
	}
	return &wallets[0], nil
}
