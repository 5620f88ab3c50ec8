// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletpilot-dev/walletpilot/internal/config"
	"github.com/walletpilot-dev/walletpilot/internal/secrets"
)

func TestParseKeyringURI(t *testing.T) {
	svc, key, err := secrets.ParseKeyringURI("keyring://walletpilot/custody-api-key")
	require.NoError(t, err)
	assert.Equal(t, "walletpilot", svc)
	assert.Equal(t, "custody-api-key", key)
}

func TestParseKeyringURI_Malformed(t *testing.T) {
	for _, uri := range []string{
		"keyring://",
		"keyring://only-service",
		"keyring:///key-no-service",
		"keyring://service/",
		"https://not-keyring/key",
	} {
		_, _, err := secrets.ParseKeyringURI(uri)
		assert.Error(t, err, "uri %q", uri)
	}
}

func TestResolveKeyringURI_PassThrough(t *testing.T) {
	val, err := secrets.ResolveKeyringURI(secrets.NewKeyringStore(), "plain-api-key")
	require.NoError(t, err)
	assert.Equal(t, "plain-api-key", val)
}

func TestResolveKeyringURI(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("walletpilot-test", "custody-api-key", "TEST_API_KEY:resolved"))

	val, err := secrets.ResolveKeyringURI(ks, "keyring://walletpilot-test/custody-api-key")
	require.NoError(t, err)
	assert.Equal(t, "TEST_API_KEY:resolved", val)
}

func TestResolveKeyringURI_Missing(t *testing.T) {
	_, err := secrets.ResolveKeyringURI(secrets.NewKeyringStore(), "keyring://walletpilot-test/absent")
	require.Error(t, err)
}

func TestResolveConfigSecrets(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store("walletpilot-cfg", "custody", "TEST_API_KEY:cfg"))
	require.NoError(t, ks.Store("walletpilot-cfg", "anthropic", "sk-ant-cfg"))

	cfg := &config.Config{
		Custody: config.CustodyConfig{APIKey: "keyring://walletpilot-cfg/custody"},
		Providers: map[string]config.ProviderConfig{
			"anthropic": {APIKey: "keyring://walletpilot-cfg/anthropic"},
			"openai":    {APIKey: "sk-oai-plain"},
		},
	}

	secrets.ResolveConfigSecrets(cfg, ks)

	assert.Equal(t, "TEST_API_KEY:cfg", cfg.Custody.APIKey)
	assert.Equal(t, "sk-ant-cfg", cfg.Providers["anthropic"].APIKey)
	assert.Equal(t, "sk-oai-plain", cfg.Providers["openai"].APIKey)
}

func TestResolveConfigSecrets_KeepsUnresolvableValue(t *testing.T) {
	cfg := &config.Config{
		Custody: config.CustodyConfig{APIKey: "keyring://walletpilot-cfg/never-stored"},
	}

	secrets.ResolveConfigSecrets(cfg, secrets.NewKeyringStore())

	assert.Equal(t, "keyring://walletpilot-cfg/never-stored", cfg.Custody.APIKey)
}
