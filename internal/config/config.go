// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package config

import (
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// Config is the top-level Walletpilot configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Identity  IdentityConfig            `mapstructure:"identity"`
	Custody   CustodyConfig             `mapstructure:"custody"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Models    ModelsConfig              `mapstructure:"models"`
}

// ServerConfig controls how the HTTP API listens for connections.
type ServerConfig struct {
	Listen         string   `mapstructure:"listen"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SecureCookies  bool     `mapstructure:"secure_cookies"`
}

// IdentityConfig holds Google sign-in verification parameters.
type IdentityConfig struct {
	GoogleClientID string `mapstructure:"google_client_id"`
	JWKSURL        string `mapstructure:"jwks_url"` // override for tests
}

// CustodyConfig holds the custody gateway endpoint and purchase settlement
// parameters.
type CustodyConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	APIKey           string `mapstructure:"api_key"`
	RecipientAddress string `mapstructure:"recipient_address"`
	SettlementSymbol string `mapstructure:"settlement_symbol"`
}

// ProviderConfig holds credentials and endpoint for an LLM provider.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// ModelsConfig controls model selection.
type ModelsConfig struct {
	Default   string `mapstructure:"default"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix WALLETPILOT_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8787")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("custody.settlement_symbol", "USDC")
	v.SetDefault("models.default", "anthropic/claude-sonnet-4-5")
	v.SetDefault("models.max_tokens", 4096)

	// Environment
	v.SetEnvPrefix("WALLETPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, piloterr.Errorf(piloterr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateIdentity()...)
	errs = append(errs, c.validateCustody()...)
	errs = append(errs, c.validateModels()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
	} else {
		host, portStr, err := net.SplitHostPort(c.Server.Listen)
		if err != nil {
			errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
				"config: server.listen must be a valid host:port address, got %q: %w",
				c.Server.Listen, err,
			))
		} else {
			_ = host // host can be empty (e.g., ":8080"), which is valid
			port, err := strconv.Atoi(portStr)
			if err != nil {
				errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
					"config: server.listen port must be a number, got %q",
					portStr,
				))
			} else if port < 1 || port > 65535 {
				errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
					"config: server.listen port must be between 1 and 65535, got %d",
					port,
				))
			}
		}
	}

	return errs
}

func (c *Config) validateIdentity() []error {
	var errs []error

	if c.Identity.GoogleClientID == "" {
		errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
			"config: identity.google_client_id must not be empty"))
	}

	return errs
}

func (c *Config) validateCustody() []error {
	var errs []error

	if c.Custody.BaseURL == "" {
		errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
			"config: custody.base_url must not be empty"))
	}
	if c.Custody.APIKey == "" {
		errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
			"config: custody.api_key must not be empty"))
	}
	if c.Custody.RecipientAddress == "" {
		errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
			"config: custody.recipient_address must not be empty"))
	}
	if c.Custody.SettlementSymbol == "" {
		errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
			"config: custody.settlement_symbol must not be empty"))
	}

	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	if c.Models.Default == "" {
		errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue, "config: models.default must not be empty"))
	} else if !strings.Contains(c.Models.Default, "/") {
		errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
			"config: models.default must be in \"provider/model\" format, got %q",
			c.Models.Default,
		))
	} else if c.Providers != nil {
		// Only cross-reference providers when the providers section exists
		// in config. A nil map means no providers section was configured,
		// which is valid.
		providerName := providerFromModel(c.Models.Default)
		if _, ok := c.Providers[providerName]; !ok {
			errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
				"config: models.default %q references provider %q which is not configured",
				c.Models.Default, providerName,
			))
		}
	}

	if c.Models.MaxTokens <= 0 {
		errs = append(errs, piloterr.Errorf(piloterr.CodeConfigValidateInvalidValue,
			"config: models.max_tokens must be greater than 0, got %d",
			c.Models.MaxTokens,
		))
	}

	return errs
}

// providerFromModel extracts the provider prefix from a "provider/model" string.
func providerFromModel(model string) string {
	if idx := strings.Index(model, "/"); idx > 0 {
		return model[:idx]
	}
	return model
}
