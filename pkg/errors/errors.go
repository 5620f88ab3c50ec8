// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeAuthIdentityRequired   Code = "auth.identity.required"
	CodeAuthIdentityInvalid    Code = "auth.identity.invalid"
	CodeAuthCredentialRequired Code = "auth.credential.required"
	CodeAuthSessionNotFound    Code = "auth.session.not_found"

	CodeWalletOwnershipDenied Code = "wallet.ownership.denied"
	CodeWalletNoneAvailable   Code = "wallet.none_available.not_found"

	CodeCatalogItemNotFound Code = "catalog.item.not_found"
	CodeCatalogPriceInvalid Code = "catalog.price.invalid_value"

	CodeActionRequestInvalid      Code = "action.request.invalid_input"
	CodeActionAmountInvalid       Code = "action.amount.invalid_value"
	CodeActionBalanceInsufficient Code = "action.balance.insufficient"

	CodeCustodyRequestInvalid  Code = "custody.request.invalid_input"
	CodeCustodyUpstreamFailure Code = "custody.upstream.failure"

	CodeProviderRequestInvalid  Code = "provider.request.invalid_input"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"
	CodeProviderNotFound        Code = "provider.registry.not_found"
	CodeProviderNoDefault       Code = "provider.routing.no_default"
	CodeProviderInvalidModelRef Code = "provider.routing.invalid_model_ref"

	CodeAgentLoopInvalidInput Code = "agent.loop.invalid_input"
	CodeAgentLoopFailure      Code = "agent.loop.failure"
	CodeAgentToolFailure      Code = "agent.tool.failure"
	CodeAgentToolUnknown      Code = "agent.tool.not_found"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSecretInvalidInput   Code = "secret.request.invalid_input"
	CodeSecretNotFound       Code = "secret.entry.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid_input"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldWalletID(value string) Attr {
	return Field("wallet_id", value)
}

func FieldItemID(value string) Attr {
	return Field("item_id", value)
}

func FieldSubject(value string) Attr {
	return Field("subject", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "insufficient"
}

func IsUnauthorized(err error) bool {
	r := reason(CodeOf(err))
	return r == "required" || r == "denied"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

// HTTPStatus maps an error code to the status the HTTP boundary should emit.
// Missing identity is 401; a present identity lacking a wallet credential,
// and any ownership violation, are 403. Ownership violations and genuinely
// unknown wallet ids share one code so the status cannot be used to
// enumerate other users' wallets.
func HTTPStatus(err error) int {
	switch {
	case HasCode(err, CodeAuthIdentityRequired), HasCode(err, CodeAuthIdentityInvalid), HasCode(err, CodeAuthSessionNotFound):
		return http.StatusUnauthorized
	case HasCode(err, CodeAuthCredentialRequired), HasCode(err, CodeWalletOwnershipDenied):
		return http.StatusForbidden
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
