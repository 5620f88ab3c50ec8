// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

// Package custody is the HTTP client for the wallet-custody provider.
// The provider holds no signing authority either: every state change it
// accepts is a challenge that only the user's device can execute.
package custody

import "time"

// Credential is the opaque bearer value authorizing gateway reads and
// challenge creation for one custody user. It is not a signing key.
type Credential struct {
	UserToken     string `json:"userToken"`
	EncryptionKey string `json:"encryptionKey,omitempty"`
}

// Wallet is a read-through projection of a custody-side wallet. It is never
// persisted locally; ownership is re-derived per request from the live list.
type Wallet struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	Blockchain  string `json:"blockchain"`
	AccountType string `json:"accountType"`
	State       string `json:"state"`
}

// Token identifies an on-chain asset as the custody provider names it.
type Token struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

// Balance is one asset balance within a wallet. Amount is a decimal string;
// it is never parsed as a float.
type Balance struct {
	Token  Token  `json:"token"`
	Amount string `json:"amount"`
}

// Transaction is a settled or in-flight transfer as reported by the provider.
type Transaction struct {
	ID        string    `json:"id"`
	WalletID  string    `json:"walletId"`
	TokenID   string    `json:"tokenId"`
	Amount    string    `json:"amount"`
	State     string    `json:"state"`
	TxHash    string    `json:"txHash,omitempty"`
	CreatedAt time.Time `json:"createDate"`
}

// DeviceToken is the short-lived token the browser signer uses to enroll a device.
type DeviceToken struct {
	Token         string `json:"deviceToken"`
	EncryptionKey string `json:"deviceEncryptionKey"`
}

// Challenge is a gateway-issued capability representing one proposed state
// change. It carries no guarantee of eventual settlement; only the user's
// device+PIN context can execute it.
type Challenge struct {
	ID string `json:"challengeId"`
}

// TransferRequest asks the gateway to mint a transfer challenge.
// IdempotencyKey is generated fresh per proposal: a retry of the same user
// intent is a new proposal, not a retry of a stuck network call.
type TransferRequest struct {
	WalletID           string `json:"walletId"`
	TokenID            string `json:"tokenId"`
	DestinationAddress string `json:"destinationAddress"`
	Amount             string `json:"amount"`
	FeeLevel           string `json:"feeLevel"`
	IdempotencyKey     string `json:"idempotencyKey"`
}
