// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

type stubProvider struct {
	name      string
	available bool
}

func (s *stubProvider) Name() string                       { return s.name }
func (s *stubProvider) Available(_ context.Context) bool   { return s.available }
func (s *stubProvider) Close() error                       { return nil }
func (s *stubProvider) Chat(_ context.Context, _ ChatRequest) (<-chan ChatEvent, error) {
	ch := make(chan ChatEvent)
	close(ch)
	return ch, nil
}

func TestRegistry_RouteDefault(t *testing.T) {
	r := NewRegistry()
	r.Register("anthropic", &stubProvider{name: "anthropic", available: true})
	require.NoError(t, r.SetDefault("anthropic/claude-sonnet-4-5"))

	p, model, err := r.Route(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-sonnet-4-5", model)

	p, model, err = r.Route(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-sonnet-4-5", model)
}

func TestRegistry_RouteExplicitRef(t *testing.T) {
	r := NewRegistry()
	r.Register("openai", &stubProvider{name: "openai", available: true})

	p, model, err := r.Route(context.Background(), "openai/gpt-4.1-mini")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-4.1-mini", model)
}

func TestRegistry_RouteRejectsBareModelName(t *testing.T) {
	r := NewRegistry()
	r.Register("openai", &stubProvider{name: "openai", available: true})

	_, _, err := r.Route(context.Background(), "gpt-4.1-mini")
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeProviderInvalidModelRef, piloterr.CodeOf(err))
}

func TestRegistry_RouteNoDefault(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Route(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeProviderNoDefault, piloterr.CodeOf(err))
}

func TestRegistry_RouteUnknownProvider(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Route(context.Background(), "nobody/some-model")
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeProviderNotFound, piloterr.CodeOf(err))
}

func TestRegistry_RouteUnavailableProvider(t *testing.T) {
	r := NewRegistry()
	r.Register("anthropic", &stubProvider{name: "anthropic", available: false})

	_, _, err := r.Route(context.Background(), "anthropic/claude-sonnet-4-5")
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeProviderUpstreamFailure, piloterr.CodeOf(err))
}

func TestRegistry_SetDefaultRequiresRegisteredProvider(t *testing.T) {
	r := NewRegistry()

	err := r.SetDefault("anthropic/claude-sonnet-4-5")
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeProviderNotFound, piloterr.CodeOf(err))
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register("openai", &stubProvider{name: "openai", available: true})

	p, err := r.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = r.Get("missing")
	require.Error(t, err)
	assert.True(t, piloterr.IsNotFound(err))
}
