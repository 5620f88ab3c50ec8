// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package ledger_test

import (
	"context"
	"testing"

	"github.com/walletpilot-dev/walletpilot/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndHas(t *testing.T) {
	l := ledger.NewMemoryLedger()
	ctx := context.Background()

	has, err := l.Has(ctx, "w1", "coffee")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, l.Record(ctx, "w1", "coffee"))

	has, err = l.Has(ctx, "w1", "coffee")
	require.NoError(t, err)
	assert.True(t, has)

	// Other wallets are unaffected.
	has, err = l.Has(ctx, "w2", "coffee")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRecordIsIdempotent(t *testing.T) {
	l := ledger.NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "w1", "coffee"))
	require.NoError(t, l.Record(ctx, "w1", "coffee"))

	items, err := l.Items(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"coffee"}, items, "double confirm should leave exactly one membership")
}

func TestItemsInsertionOrder(t *testing.T) {
	l := ledger.NewMemoryLedger()
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "w1", "coffee"))
	require.NoError(t, l.Record(ctx, "w1", "sticker-pack"))
	require.NoError(t, l.Record(ctx, "w1", "hoodie"))

	items, err := l.Items(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"coffee", "sticker-pack", "hoodie"}, items)
}
