// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

// Package action validates transfer and purchase intents and turns them into
// custody-gateway signing challenges. The engine never moves funds and never
// writes local state: a successful proposal is a capability the user may
// sign, not a commitment.
package action

// Kind discriminates the pending-action union.
type Kind string

const (
	KindTransfer Kind = "transfer"
	KindPurchase Kind = "purchase"
)

// State is the lifecycle position of an action proposal.
//
// PROPOSED -> PREPARED -> SIGNED -> CONFIRMED | ABANDONED
//
// The engine only ever emits PREPARED: inputs validated, balance checked,
// challenge acquired, nothing moved. SIGNED happens client-side; CONFIRMED
// is the ledger's record. There is no path from PROPOSED to CONFIRMED that
// skips the signing step — the backend cannot self-authorize movement.
type State string

const (
	StateProposed  State = "PROPOSED"
	StatePrepared  State = "PREPARED"
	StateSigned    State = "SIGNED"
	StateConfirmed State = "CONFIRMED"
	StateAbandoned State = "ABANDONED"
)

// PendingAction is a prepared proposal awaiting a client-side signature.
// ChallengeID is the capability the client signer executes against the
// custody gateway; the remaining fields echo the validated intent so the UI
// can render a confirmation prompt.
type PendingAction struct {
	Kind        Kind   `json:"type"`
	State       State  `json:"state"`
	ChallengeID string `json:"challengeId"`
	WalletID    string `json:"walletId"`

	// Transfer fields.
	TokenID            string `json:"tokenId,omitempty"`
	DestinationAddress string `json:"destinationAddress,omitempty"`
	Amount             string `json:"amount,omitempty"`
	FeeLevel           string `json:"feeLevel,omitempty"`

	// Purchase fields.
	ItemID string `json:"itemId,omitempty"`
	Price  string `json:"price,omitempty"`
}
