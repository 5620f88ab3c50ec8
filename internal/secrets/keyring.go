// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// KeyringStore implements Store on the OS keyring via zalando/go-keyring:
// Keychain on macOS, secret-service over D-Bus on Linux, Credential Manager
// on Windows.
//
// go-keyring cannot enumerate keys, so each service carries a JSON index of
// its key names under a reserved entry; List reads that index.
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkArgs("store", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return piloterr.Wrapf(err, piloterr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return serviceIndex(service).add(key)
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkArgs("retrieve", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", piloterr.Errorf(piloterr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", piloterr.Wrapf(err, piloterr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkArgs("delete", service, key); err != nil {
		return err
	}
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return piloterr.Errorf(piloterr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return piloterr.Wrapf(err, piloterr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return serviceIndex(service).remove(key)
}

func (s *KeyringStore) List(service string) ([]string, error) {
	return serviceIndex(service).keys()
}

func checkArgs(op, service, key string) error {
	if service == "" {
		return piloterr.New(piloterr.CodeSecretInvalidInput, "secret "+op+": service must not be empty")
	}
	if key == "" {
		return piloterr.New(piloterr.CodeSecretInvalidInput, "secret "+op+": key must not be empty")
	}
	return nil
}

// indexSuffix forms the reserved entry name holding a service's key index.
const indexSuffix = "::keys-index"

// serviceIndex scopes index operations to one service's reserved entry.
type serviceIndex string

func (ix serviceIndex) entry() string { return string(ix) + indexSuffix }

func (ix serviceIndex) keys() ([]string, error) {
	raw, err := keyring.Get(string(ix), ix.entry())
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, piloterr.Wrapf(err, piloterr.CodeSecretStoreFailure, "loading key index for service %s", ix)
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, piloterr.Wrapf(err, piloterr.CodeSecretStoreFailure, "decoding key index for service %s", ix)
	}
	return keys, nil
}

func (ix serviceIndex) add(key string) error {
	keys, err := ix.keys()
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return ix.write(append(keys, key))
}

func (ix serviceIndex) remove(key string) error {
	keys, err := ix.keys()
	if err != nil {
		return err
	}
	return ix.write(slices.DeleteFunc(keys, func(k string) bool { return k == key }))
}

func (ix serviceIndex) write(keys []string) error {
	if len(keys) == 0 {
		// An empty index is represented by no entry at all.
		if err := keyring.Delete(string(ix), ix.entry()); err != nil {
			slog.Debug("removing empty key index", "service", string(ix), "error", err)
		}
		return nil
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return piloterr.Wrapf(err, piloterr.CodeSecretStoreFailure, "encoding key index for service %s", ix)
	}
	if err := keyring.Set(string(ix), ix.entry(), string(data)); err != nil {
		return piloterr.Wrapf(err, piloterr.CodeSecretStoreFailure, "saving key index for service %s", ix)
	}
	return nil
}
