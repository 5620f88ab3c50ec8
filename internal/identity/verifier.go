// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

// Package identity validates third-party identity assertions. The
// cryptographic verification itself is delegated to golang-jwt against the
// issuer's published keys; callers only ever see a verified subject and
// email, or a failure.
package identity

import "context"

// Claims is the verified identity assertion.
type Claims struct {
	Subject string
	Email   string
}

// Verifier validates a raw identity token.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}
