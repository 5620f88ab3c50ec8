// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/walletpilot-dev/walletpilot/internal/action"
	"github.com/walletpilot-dev/walletpilot/internal/agent"
	"github.com/walletpilot-dev/walletpilot/internal/catalog"
	"github.com/walletpilot-dev/walletpilot/internal/config"
	"github.com/walletpilot-dev/walletpilot/internal/custody"
	"github.com/walletpilot-dev/walletpilot/internal/identity"
	"github.com/walletpilot-dev/walletpilot/internal/ledger"
	"github.com/walletpilot-dev/walletpilot/internal/provider"
	anthropicprov "github.com/walletpilot-dev/walletpilot/internal/provider/anthropic"
	openaiprov "github.com/walletpilot-dev/walletpilot/internal/provider/openai"
	"github.com/walletpilot-dev/walletpilot/internal/secrets"
	"github.com/walletpilot-dev/walletpilot/internal/server"
	"github.com/walletpilot-dev/walletpilot/internal/session"
	"github.com/walletpilot-dev/walletpilot/internal/wallet"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// Gateway holds all wired subsystems and manages their lifecycle.
type Gateway struct {
	Server    *server.Server
	Providers *provider.Registry
}

// WireGateway creates all subsystems and wires them together. Config values
// pointing at the OS keyring are resolved before anything dials out.
func WireGateway(cfg *config.Config) (*Gateway, error) {
	secrets.ResolveConfigSecrets(cfg, secretStoreFactory())

	custodyClient, err := custody.NewClient(custody.Config{
		BaseURL: cfg.Custody.BaseURL,
		APIKey:  cfg.Custody.APIKey,
	})
	if err != nil {
		return nil, piloterr.Wrapf(err, piloterr.CodeCLISetupFailure, "creating custody client")
	}

	verifier, err := identity.NewGoogleVerifier(identity.GoogleConfig{
		ClientID: cfg.Identity.GoogleClientID,
		JWKSURL:  cfg.Identity.JWKSURL,
	})
	if err != nil {
		return nil, piloterr.Wrapf(err, piloterr.CodeCLISetupFailure, "creating identity verifier")
	}

	ownership := wallet.NewVerifier(custodyClient)
	cat := catalog.New()

	engine, err := action.NewEngine(action.EngineConfig{
		Gateway:          custodyClient,
		Ownership:        ownership,
		Catalog:          cat,
		Ledger:           ledger.NewMemoryLedger(),
		RecipientAddress: cfg.Custody.RecipientAddress,
		SettlementSymbol: cfg.Custody.SettlementSymbol,
	})
	if err != nil {
		return nil, piloterr.Wrapf(err, piloterr.CodeCLISetupFailure, "creating action engine")
	}

	registry := provider.NewRegistry()
	registerBuiltinProviders(cfg, registry)
	if cfg.Models.Default != "" {
		if err := registry.SetDefault(cfg.Models.Default); err != nil {
			_ = registry.Close()
			return nil, piloterr.Wrapf(err, piloterr.CodeCLISetupFailure, "setting default model: %s", cfg.Models.Default)
		}
	}

	loop, err := agent.NewLoop(agent.LoopConfig{
		Registry:  registry,
		MaxTokens: cfg.Models.MaxTokens,
	})
	if err != nil {
		_ = registry.Close()
		return nil, piloterr.Wrapf(err, piloterr.CodeCLISetupFailure, "creating agent loop")
	}

	srv, err := server.New(server.Config{
		ListenAddr:    cfg.Server.Listen,
		CORSOrigins:   cfg.Server.AllowedOrigins,
		SecureCookies: cfg.Server.SecureCookies,
	}, &server.Services{
		Sessions:  session.NewMemoryStore(),
		Identity:  verifier,
		Gateway:   custodyClient,
		Ownership: ownership,
		Catalog:   cat,
		Engine:    engine,
		Loop:      loop,
	})
	if err != nil {
		_ = registry.Close()
		return nil, piloterr.Wrapf(err, piloterr.CodeCLISetupFailure, "creating server")
	}

	return &Gateway{
		Server:    srv,
		Providers: registry,
	}, nil
}

// Start runs the HTTP server and blocks until the context is cancelled.
func (gw *Gateway) Start(ctx context.Context) error {
	return gw.Server.Start(ctx)
}

// Close releases all resources held by the gateway.
func (gw *Gateway) Close() error {
	if gw.Providers == nil {
		return nil
	}
	return gw.Providers.Close()
}

// providerFactory builds a provider.Provider from a ProviderConfig.
type providerFactory func(config.ProviderConfig) (provider.Provider, error)

// builtinProviderFactories maps provider names to their constructors.
// Declared as a variable so tests can inject failing factories.
var builtinProviderFactories = map[string]providerFactory{
	"anthropic": func(pc config.ProviderConfig) (provider.Provider, error) {
		return anthropicprov.New(anthropicprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
	"openai": func(pc config.ProviderConfig) (provider.Provider, error) {
		return openaiprov.New(openaiprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
}

// registerBuiltinProviders iterates configured providers and registers
// matching built-in implementations. Unknown names or empty API keys are
// logged and skipped — neither is fatal at startup.
func registerBuiltinProviders(cfg *config.Config, reg *provider.Registry) {
	for name, pc := range cfg.Providers {
		if pc.APIKey == "" {
			slog.Warn("skipping provider with empty API key", "provider", name)
			continue
		}
		factory, ok := builtinProviderFactories[name]
		if !ok {
			slog.Warn("unknown provider in config, skipping", "provider", name)
			continue
		}
		p, err := factory(pc)
		if err != nil {
			slog.Warn("failed to create provider", "provider", name, "error", err)
			continue
		}
		reg.Register(name, p)
		slog.Info("registered provider", "provider", name)
	}
}
