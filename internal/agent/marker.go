// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package agent

import (
	"encoding/json"
	"strings"

	"github.com/walletpilot-dev/walletpilot/internal/action"
)

// PendingActionMarker delimits a machine-readable action payload inside an
// otherwise human-readable tool result. Tool results are plain text fed back
// into the model, so the payload travels between two instances of a fixed
// string the model is unlikely to produce on its own.
const PendingActionMarker = "<<!PENDING_ACTION!>>"

// WrapPendingAction serializes the action between two markers, followed by
// prose for the model and the user.
func WrapPendingAction(pa *action.PendingAction, prose string) (string, error) {
	payload, err := json.Marshal(pa)
	if err != nil {
		return "", err
	}
	return PendingActionMarker + string(payload) + PendingActionMarker + "\n" + prose, nil
}

// ExtractPendingAction returns the first complete marker-delimited action in
// text. A missing closing marker or invalid JSON yields (nil, false), never
// an error: the prose remainder of a mangled result is still usable.
func ExtractPendingAction(text string) (*action.PendingAction, bool) {
	start := strings.Index(text, PendingActionMarker)
	if start < 0 {
		return nil, false
	}

	rest := text[start+len(PendingActionMarker):]
	end := strings.Index(rest, PendingActionMarker)
	if end < 0 {
		return nil, false
	}

	var pa action.PendingAction
	if err := json.Unmarshal([]byte(rest[:end]), &pa); err != nil {
		return nil, false
	}
	return &pa, true
}

// StripMarkers removes complete marker-delimited spans, returning the
// human-readable remainder. An unpaired marker is left in place.
func StripMarkers(text string) string {
	for {
		start := strings.Index(text, PendingActionMarker)
		if start < 0 {
			return strings.TrimSpace(text)
		}
		rest := text[start+len(PendingActionMarker):]
		end := strings.Index(rest, PendingActionMarker)
		if end < 0 {
			return strings.TrimSpace(text)
		}
		text = text[:start] + rest[end+len(PendingActionMarker):]
	}
}
