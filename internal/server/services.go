// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package server

import (
	"github.com/walletpilot-dev/walletpilot/internal/action"
	"github.com/walletpilot-dev/walletpilot/internal/agent"
	"github.com/walletpilot-dev/walletpilot/internal/catalog"
	"github.com/walletpilot-dev/walletpilot/internal/custody"
	"github.com/walletpilot-dev/walletpilot/internal/identity"
	"github.com/walletpilot-dev/walletpilot/internal/session"
	"github.com/walletpilot-dev/walletpilot/internal/wallet"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// Services bundles the dependencies the HTTP operations dispatch into.
type Services struct {
	Sessions  session.Store
	Identity  identity.Verifier
	Gateway   custody.Gateway
	Ownership *wallet.Verifier
	Catalog   *catalog.Catalog
	Engine    *action.Engine
	Loop      *agent.Loop

	// Blockchains to initialize new custody users on.
	Blockchains []string
}

func (s *Services) validate() error {
	if s == nil {
		return piloterr.New(piloterr.CodeServerStartFailure, "services are required")
	}
	missing := ""
	switch {
	case s.Sessions == nil:
		missing = "Sessions"
	case s.Identity == nil:
		missing = "Identity"
	case s.Gateway == nil:
		missing = "Gateway"
	case s.Ownership == nil:
		missing = "Ownership"
	case s.Catalog == nil:
		missing = "Catalog"
	case s.Engine == nil:
		missing = "Engine"
	case s.Loop == nil:
		missing = "Loop"
	}
	if missing != "" {
		return piloterr.New(piloterr.CodeServerStartFailure, "services: "+missing+" is required")
	}
	return nil
}

func (s *Services) blockchains() []string {
	if len(s.Blockchains) == 0 {
		return []string{"ETH-SEPOLIA"}
	}
	return s.Blockchains
}
