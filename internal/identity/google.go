// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

const (
	googleIssuer       = "https://accounts.google.com"
	googleIssuerNoHTTP = "accounts.google.com"
	googleJWKSURL      = "https://www.googleapis.com/oauth2/v3/certs"

	// jwksRefreshInterval bounds how long a fetched key set is reused.
	// Google rotates keys on the order of days; an hour is comfortably fresh.
	jwksRefreshInterval = time.Hour
)

// GoogleConfig holds Google ID-token verification configuration.
type GoogleConfig struct {
	// ClientID is the OAuth client the token audience must match.
	ClientID string
	// JWKSURL overrides the certs endpoint, useful for tests.
	JWKSURL string
}

// GoogleVerifier validates Google-issued ID tokens against the live JWKS.
type GoogleVerifier struct {
	clientID string
	jwksURL  string
	http     *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewGoogleVerifier creates a verifier. Returns an error if the client ID is missing.
func NewGoogleVerifier(cfg GoogleConfig) (*GoogleVerifier, error) {
	if cfg.ClientID == "" {
		return nil, piloterr.New(piloterr.CodeConfigValidateInvalidValue, "identity: missing google client_id in config")
	}

	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = googleJWKSURL
	}

	return &GoogleVerifier{
		clientID: cfg.ClientID,
		jwksURL:  jwksURL,
		http:     &http.Client{Timeout: 10 * time.Second},
	}, nil
}

type googleClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verify parses and validates the token signature, issuer, audience, and
// expiry, returning the stable subject id and email.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	if rawToken == "" {
		return nil, piloterr.New(piloterr.CodeAuthIdentityInvalid, "identity token must not be empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(rawToken, &googleClaims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, piloterr.New(piloterr.CodeAuthIdentityInvalid, "identity token missing key id")
		}
		return v.keyForKID(ctx, kid)
	})
	if err != nil {
		return nil, piloterr.Wrapf(err, piloterr.CodeAuthIdentityInvalid, "verifying identity token")
	}

	claims, ok := token.Claims.(*googleClaims)
	if !ok || !token.Valid {
		return nil, piloterr.New(piloterr.CodeAuthIdentityInvalid, "identity token claims invalid")
	}

	if claims.Issuer != googleIssuer && claims.Issuer != googleIssuerNoHTTP {
		return nil, piloterr.Errorf(piloterr.CodeAuthIdentityInvalid, "unexpected token issuer %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, piloterr.New(piloterr.CodeAuthIdentityInvalid, "identity token missing subject")
	}

	return &Claims{Subject: claims.Subject, Email: claims.Email}, nil
}

// keyForKID returns the RSA key for kid, refreshing the cached JWKS when the
// kid is unknown or the cache is stale. An unknown kid after a fresh fetch
// is a verification failure, not a retry loop.
func (v *GoogleVerifier) keyForKID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Since(v.fetchedAt) < jwksRefreshInterval
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}

	if err := v.refreshKeys(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	key, ok = v.keys[kid]
	if !ok {
		return nil, piloterr.Errorf(piloterr.CodeAuthIdentityInvalid, "no signing key for kid %q", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *GoogleVerifier) refreshKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return piloterr.Wrapf(err, piloterr.CodeAuthIdentityInvalid, "building JWKS request")
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return piloterr.Wrapf(err, piloterr.CodeAuthIdentityInvalid, "fetching JWKS")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return piloterr.Errorf(piloterr.CodeAuthIdentityInvalid, "JWKS endpoint returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return piloterr.Wrapf(err, piloterr.CodeAuthIdentityInvalid, "reading JWKS response")
	}

	var doc jwksDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return piloterr.Wrapf(err, piloterr.CodeAuthIdentityInvalid, "decoding JWKS document")
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := parseRSAKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return piloterr.New(piloterr.CodeAuthIdentityInvalid, "JWKS document contained no usable RSA keys")
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = time.Now()
	v.mu.Unlock()

	return nil
}

func parseRSAKey(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}
