// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

// Package ledger records which items a wallet has paid for, from the
// application's point of view. Entries are appended when the client reports
// a signed challenge; there is no on-chain settlement verification behind
// this record (see DESIGN.md).
package ledger

import (
	"context"
	"sync"
)

// Ledger is the confirmation ledger consumed by the purchase flow.
// Record is idempotent: re-adding an existing (walletID, itemID) pair is a
// no-op. Implementations backed by a shared durable store can replace the
// in-memory one without changing callers.
type Ledger interface {
	Record(ctx context.Context, walletID, itemID string) error
	Has(ctx context.Context, walletID, itemID string) (bool, error)
	Items(ctx context.Context, walletID string) ([]string, error)
}

// MemoryLedger is the process-local implementation: a set of item ids keyed
// by wallet id.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]map[string]struct{}
	order   map[string][]string
}

// NewMemoryLedger returns an empty in-process ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		entries: make(map[string]map[string]struct{}),
		order:   make(map[string][]string),
	}
}

func (l *MemoryLedger) Record(_ context.Context, walletID, itemID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	set, ok := l.entries[walletID]
	if !ok {
		set = make(map[string]struct{})
		l.entries[walletID] = set
	}
	if _, exists := set[itemID]; exists {
		return nil
	}
	set[itemID] = struct{}{}
	l.order[walletID] = append(l.order[walletID], itemID)
	return nil
}

func (l *MemoryLedger) Has(_ context.Context, walletID, itemID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	set, ok := l.entries[walletID]
	if !ok {
		return false, nil
	}
	_, exists := set[itemID]
	return exists, nil
}

// Items returns the item ids recorded for a wallet in insertion order.
func (l *MemoryLedger) Items(_ context.Context, walletID string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items := l.order[walletID]
	out := make([]string, len(items))
	copy(out, items)
	return out, nil
}
