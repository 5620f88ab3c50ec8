// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:         "127.0.0.1:8787",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Identity: IdentityConfig{GoogleClientID: "client-id"},
		Custody: CustodyConfig{
			BaseURL:          "https://api.custody.example.com/v1/w3s",
			APIKey:           "TEST_API_KEY",
			RecipientAddress: "0xmerchant",
			SettlementSymbol: "USDC",
		},
		Providers: map[string]ProviderConfig{
			"anthropic": {APIKey: "sk-ant-test"},
		},
		Models: ModelsConfig{Default: "anthropic/claude-sonnet-4-5", MaxTokens: 4096},
	}
}

func TestValidate_OK(t *testing.T) {
	assert.Empty(t, validConfig().Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}

	errs := cfg.Validate()
	// listen, google_client_id, custody base_url/api_key/recipient/symbol,
	// models.default, models.max_tokens all missing at once.
	assert.GreaterOrEqual(t, len(errs), 8)
}

func TestValidate_ListenAddress(t *testing.T) {
	cases := []struct {
		name   string
		listen string
		ok     bool
	}{
		{"host and port", "127.0.0.1:8787", true},
		{"port only", ":8080", true},
		{"no port", "127.0.0.1", false},
		{"bad port", "127.0.0.1:notaport", false},
		{"port too large", "127.0.0.1:70000", false},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Listen = tc.listen
			errs := cfg.Validate()
			if tc.ok {
				assert.Empty(t, errs)
			} else {
				assert.NotEmpty(t, errs)
			}
		})
	}
}

func TestValidate_DefaultModelFormat(t *testing.T) {
	cfg := validConfig()
	cfg.Models.Default = "claude-sonnet-4-5"
	assert.NotEmpty(t, cfg.Validate())
}

func TestValidate_DefaultModelProviderMustBeConfigured(t *testing.T) {
	cfg := validConfig()
	cfg.Models.Default = "openai/gpt-4.1-mini"
	assert.NotEmpty(t, cfg.Validate())

	// Without a providers section the cross-reference is skipped.
	cfg.Providers = nil
	assert.Empty(t, cfg.Validate())
}

func TestLoad_FileWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walletpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
identity:
  google_client_id: client-id
custody:
  base_url: https://api.custody.example.com/v1/w3s
  api_key: TEST_API_KEY
  recipient_address: "0xmerchant"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Listen)
	assert.Equal(t, "USDC", cfg.Custody.SettlementSymbol)
	assert.Equal(t, "anthropic/claude-sonnet-4-5", cfg.Models.Default)
	assert.Equal(t, 4096, cfg.Models.MaxTokens)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walletpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: "not-an-address"
`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
