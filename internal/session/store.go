// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

// Package session binds an opaque browser cookie to a verified identity and,
// once custody login completes, a wallet credential. The store is an injected
// interface so a shared backend can replace the in-process map without
// touching callers.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/walletpilot-dev/walletpilot/internal/custody"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// Record is the server-side session state for one cookie.
type Record struct {
	Subject          string
	Email            string
	WalletCredential *custody.Credential
	CreatedAt        time.Time
}

// HasIdentity reports whether an identity assertion backs this session.
func (r *Record) HasIdentity() bool {
	return r != nil && r.Subject != ""
}

// HasWalletCredential reports whether custody login has completed.
func (r *Record) HasWalletCredential() bool {
	return r != nil && r.WalletCredential != nil && r.WalletCredential.UserToken != ""
}

// Store maps opaque tokens to session records.
type Store interface {
	Get(token string) (*Record, bool)
	Put(token string, rec *Record)
	Delete(token string)
}

// MemoryStore is the process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore returns an empty in-process session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Get(token string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[token]
	return rec, ok
}

func (s *MemoryStore) Put(token string, rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[token] = rec
}

func (s *MemoryStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, token)
}

// NewToken mints an opaque 128-bit session token.
func NewToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", piloterr.Wrapf(err, piloterr.CodeServerInternalFailure, "generating session token")
	}
	return hex.EncodeToString(buf), nil
}
