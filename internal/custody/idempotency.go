// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package custody

import "github.com/google/uuid"

// newIdempotencyKey mints a random key for a gateway mutation. A fresh key
// signals a new intent; dedup of network-level retries happens upstream.
func newIdempotencyKey() string {
	return uuid.New().String()
}
