// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// Gateway is the subset of custody operations the rest of the system
// consumes. The HTTP client implements it; tests substitute fakes.
type Gateway interface {
	CreateDeviceToken(ctx context.Context, deviceID string) (*DeviceToken, error)
	CreateUser(ctx context.Context, userID string) error
	CreateUserToken(ctx context.Context, userID string) (*Credential, error)
	InitializeUser(ctx context.Context, cred *Credential, blockchains []string) (*Challenge, error)
	ListWallets(ctx context.Context, cred *Credential) ([]Wallet, error)
	GetBalances(ctx context.Context, cred *Credential, walletID string) ([]Balance, error)
	ListTransactions(ctx context.Context, cred *Credential, walletID string) ([]Transaction, error)
	CreateTransferChallenge(ctx context.Context, cred *Credential, req TransferRequest) (*Challenge, error)
}

// Config holds custody client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the custody provider's REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a custody client. Returns an error if the base URL or
// API key is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, piloterr.New(piloterr.CodeCustodyRequestInvalid, "custody: missing base_url in config")
	}
	if cfg.APIKey == "" {
		return nil, piloterr.New(piloterr.CodeCustodyRequestInvalid, "custody: missing api_key in config")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) CreateDeviceToken(ctx context.Context, deviceID string) (*DeviceToken, error) {
	var out DeviceToken
	err := c.do(ctx, http.MethodPost, "/users/deviceToken", nil, map[string]string{
		"deviceId": deviceID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateUser(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/users", nil, map[string]string{
		"userId": userID,
	}, nil)
}

func (c *Client) CreateUserToken(ctx context.Context, userID string) (*Credential, error) {
	var out Credential
	err := c.do(ctx, http.MethodPost, "/users/token", nil, map[string]string{
		"userId": userID,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// InitializeUser creates the custody-side user record and its first wallet.
// The returned challenge must be executed by the client signer to finish
// PIN setup; nothing exists until then.
func (c *Client) InitializeUser(ctx context.Context, cred *Credential, blockchains []string) (*Challenge, error) {
	var out Challenge
	err := c.do(ctx, http.MethodPost, "/user/initialize", cred, map[string]any{
		"blockchains":    blockchains,
		"accountType":    "SCA",
		"idempotencyKey": newIdempotencyKey(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListWallets(ctx context.Context, cred *Credential) ([]Wallet, error) {
	var out struct {
		Wallets []Wallet `json:"wallets"`
	}
	if err := c.do(ctx, http.MethodGet, "/wallets", cred, nil, &out); err != nil {
		return nil, err
	}
	return out.Wallets, nil
}

func (c *Client) GetBalances(ctx context.Context, cred *Credential, walletID string) ([]Balance, error) {
	var out struct {
		TokenBalances []Balance `json:"tokenBalances"`
	}
	path := "/wallets/" + walletID + "/balances"
	if err := c.do(ctx, http.MethodGet, path, cred, nil, &out); err != nil {
		return nil, err
	}
	return out.TokenBalances, nil
}

func (c *Client) ListTransactions(ctx context.Context, cred *Credential, walletID string) ([]Transaction, error) {
	var out struct {
		Transactions []Transaction `json:"transactions"`
	}
	path := "/transactions?walletIds=" + walletID
	if err := c.do(ctx, http.MethodGet, path, cred, nil, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

func (c *Client) CreateTransferChallenge(ctx context.Context, cred *Credential, req TransferRequest) (*Challenge, error) {
	if req.IdempotencyKey == "" {
		return nil, piloterr.New(piloterr.CodeCustodyRequestInvalid, "custody: transfer request missing idempotency key")
	}

	var out Challenge
	if err := c.do(ctx, http.MethodPost, "/user/transactions/transfer", cred, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do executes one request against the provider. The provider wraps every
// response body in a {"data": ...} envelope. Non-2xx responses become
// upstream failures; the upstream body is kept in the wrapped chain for
// server-side logs but never echoed to clients verbatim.
func (c *Client) do(ctx context.Context, method, path string, cred *Credential, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return piloterr.Wrapf(err, piloterr.CodeCustodyRequestInvalid, "encoding %s %s request", method, path)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return piloterr.Wrapf(err, piloterr.CodeCustodyRequestInvalid, "building %s %s request", method, path)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if cred != nil {
		req.Header.Set("X-User-Token", cred.UserToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return piloterr.Wrapf(err, piloterr.CodeCustodyUpstreamFailure, "calling custody gateway: %s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return piloterr.Wrapf(err, piloterr.CodeCustodyUpstreamFailure, "reading custody response: %s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("custody gateway returned error status",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
		)
		return piloterr.Wrap(
			fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw, 512)),
			piloterr.CodeCustodyUpstreamFailure,
			"custody gateway request failed",
			piloterr.Field("status", resp.StatusCode),
		)
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return piloterr.Wrapf(err, piloterr.CodeCustodyUpstreamFailure, "decoding custody response envelope: %s %s", method, path)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return piloterr.Wrapf(err, piloterr.CodeCustodyUpstreamFailure, "decoding custody response data: %s %s", method, path)
	}

	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
