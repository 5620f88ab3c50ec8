// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package provider

import (
	"context"
	"strings"
	"sync"

	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// Registry manages provider registration, lookup, and routing.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider

	defaultRef string // "provider/model" format
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get retrieves a provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, piloterr.New(
			piloterr.CodeProviderNotFound,
			"provider not found: "+name,
			piloterr.FieldProvider(name),
		)
	}
	return p, nil
}

// SetDefault sets the default "provider/model" reference used when a chat
// request names no model. Returns an error if the provider portion of the
// ref is not registered.
func (r *Registry) SetDefault(ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	provName, _ := parseRef(ref)
	if _, ok := r.providers[provName]; !ok {
		return piloterr.New(
			piloterr.CodeProviderNotFound,
			"SetDefault: provider not registered: "+provName,
			piloterr.FieldProvider(provName),
		)
	}
	r.defaultRef = ref
	return nil
}

// Route selects a provider for the given model reference. When modelName is
// empty or "default" the configured default is used. Explicit model names
// must use "provider/model" format.
func (r *Registry) Route(ctx context.Context, modelName string) (Provider, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, err := r.resolveRef(modelName)
	if err != nil {
		return nil, "", err
	}
	if ref == "" {
		return nil, "", piloterr.New(
			piloterr.CodeProviderNoDefault,
			"no default provider configured",
		)
	}

	providerName, model := parseRef(ref)

	p, ok := r.providers[providerName]
	if !ok {
		return nil, "", piloterr.New(
			piloterr.CodeProviderNotFound,
			"provider not found: "+providerName,
			piloterr.FieldProvider(providerName),
		)
	}

	if !p.Available(ctx) {
		return nil, "", piloterr.New(
			piloterr.CodeProviderUpstreamFailure,
			"provider unavailable: "+providerName,
			piloterr.FieldProvider(providerName),
		)
	}

	return p, model, nil
}

// Close shuts down all registered providers.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, p := range r.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return piloterr.Join(errs...)
	}
	return nil
}

// resolveRef determines which "provider/model" ref to use.
// Caller must hold r.mu (at least RLock).
func (r *Registry) resolveRef(modelName string) (string, error) {
	if modelName != "" && modelName != "default" {
		if !strings.Contains(modelName, "/") {
			return "", piloterr.Errorf(
				piloterr.CodeProviderInvalidModelRef,
				"model name %q must use provider/model format", modelName,
			)
		}
		return modelName, nil
	}
	return r.defaultRef, nil
}

// parseRef splits a "provider/model" reference on the first "/".
func parseRef(ref string) (providerName, model string) {
	idx := strings.Index(ref, "/")
	if idx < 0 {
		return ref, ""
	}
	return ref[:idx], ref[idx+1:]
}
