// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package main

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletpilot-dev/walletpilot/internal/secrets"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// mockSecretStore is an in-memory secrets.Store for testing.
type mockSecretStore struct {
	data map[string]string
}

func newMockSecretStore(keys ...string) *mockSecretStore {
	m := &mockSecretStore{data: make(map[string]string)}
	for _, k := range keys {
		m.data[k] = "redacted"
	}
	return m
}

func (m *mockSecretStore) Store(_, key, value string) error {
	m.data[key] = value
	return nil
}

func (m *mockSecretStore) Retrieve(_, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", piloterr.Errorf(piloterr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func (m *mockSecretStore) Delete(_, key string) error {
	if _, ok := m.data[key]; !ok {
		return piloterr.Errorf(piloterr.CodeSecretNotFound, "not found")
	}
	delete(m.data, key)
	return nil
}

func (m *mockSecretStore) List(_ string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func withMockStore(t *testing.T, mock *mockSecretStore) {
	t.Helper()
	origFactory := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return mock }
	t.Cleanup(func() { secretStoreFactory = origFactory })
}

func TestSecretSet(t *testing.T) {
	mock := newMockSecretStore()
	withMockStore(t, mock)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetIn(strings.NewReader("sk-ant-test-value\n"))
	root.SetArgs([]string{"secret", "set", "anthropic-api-key"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Stored secret: anthropic-api-key")
	assert.Equal(t, "sk-ant-test-value", mock.data["anthropic-api-key"])
}

func TestSecretSet_EmptyValueRejected(t *testing.T) {
	mock := newMockSecretStore()
	withMockStore(t, mock)

	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetIn(strings.NewReader("\n"))
	root.SetArgs([]string{"secret", "set", "anthropic-api-key"})

	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeSecretInvalidInput, piloterr.CodeOf(err))
	assert.Empty(t, mock.data)
}

func TestSecretList(t *testing.T) {
	tests := []struct {
		name     string
		keys     []string
		wantKeys []string
		wantMsg  string
	}{
		{
			name:    "empty store",
			keys:    nil,
			wantMsg: "No secrets stored.\n",
		},
		{
			name:     "single key",
			keys:     []string{"anthropic-api-key"},
			wantKeys: []string{"anthropic-api-key"},
		},
		{
			name:     "multiple keys",
			keys:     []string{"custody-api-key", "openai-api-key"},
			wantKeys: []string{"custody-api-key", "openai-api-key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withMockStore(t, newMockSecretStore(tt.keys...))

			root := NewRootCmd()
			buf := new(bytes.Buffer)
			root.SetOut(buf)
			root.SetArgs([]string{"secret", "list"})

			err := root.Execute()
			require.NoError(t, err)

			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, buf.String())
				return
			}

			got := strings.Fields(buf.String())
			sort.Strings(got)
			assert.Equal(t, tt.wantKeys, got)
		})
	}
}

func TestSecretDelete(t *testing.T) {
	mock := newMockSecretStore("custody-api-key")
	withMockStore(t, mock)

	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"secret", "delete", "custody-api-key"})

	err := root.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Deleted secret: custody-api-key")
	assert.Empty(t, mock.data)
}

func TestSecretDelete_NotFound(t *testing.T) {
	withMockStore(t, newMockSecretStore())

	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"secret", "delete", "missing"})

	err := root.Execute()
	require.Error(t, err)
	assert.Equal(t, piloterr.CodeSecretNotFound, piloterr.CodeOf(err))
}
