// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package openai

// Exported for tests.
var (
	BuildParams     = buildParams
	ConvertMessages = convertMessages
)
