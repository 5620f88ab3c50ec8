// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package secrets

import (
	"log/slog"
	"strings"

	"github.com/walletpilot-dev/walletpilot/internal/config"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value uses the keyring:// URI scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI extracts service and key from a keyring://service/key URI.
// Returns an error if the URI is malformed.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", piloterr.Errorf(piloterr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}

	path := strings.TrimPrefix(uri, keyringScheme)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", piloterr.Errorf(piloterr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}

	return parts[0], parts[1], nil
}

// ResolveKeyringURI resolves a single keyring:// URI to its secret value.
// Returns the original value unchanged if it is not a keyring URI.
func ResolveKeyringURI(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}

	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", piloterr.Wrapf(err, piloterr.CodeSecretResolveFailure,
			"resolving keyring URI %q", value)
	}

	return secret, nil
}

// ResolveConfigSecrets resolves keyring:// URIs in the secret-bearing config
// fields (custody API key, provider API keys) in place. This is a post-load
// resolution step.
//
// Resolution failures are logged as warnings and the original URI value is
// kept in place, allowing the application to surface the error later when
// the config value is actually used.
func ResolveConfigSecrets(cfg *config.Config, store Store) {
	cfg.Custody.APIKey = resolveOrKeep(store, "custody.api_key", cfg.Custody.APIKey)

	for name, pc := range cfg.Providers {
		pc.APIKey = resolveOrKeep(store, "providers."+name+".api_key", pc.APIKey)
		cfg.Providers[name] = pc
	}
}

func resolveOrKeep(store Store, configKey, value string) string {
	if !IsKeyringURI(value) {
		return value
	}

	resolved, err := ResolveKeyringURI(store, value)
	if err != nil {
		slog.Warn("failed to resolve keyring URI, keeping original value",
			"config_key", configKey,
			"error", err,
		)
		return value
	}
	return resolved
}
