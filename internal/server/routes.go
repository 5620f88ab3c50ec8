// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/walletpilot-dev/walletpilot/internal/action"
	"github.com/walletpilot-dev/walletpilot/internal/agent"
	"github.com/walletpilot-dev/walletpilot/internal/catalog"
	"github.com/walletpilot-dev/walletpilot/internal/custody"
	"github.com/walletpilot-dev/walletpilot/internal/session"
	piloterr "github.com/walletpilot-dev/walletpilot/pkg/errors"
)

// envelope is the uniform success wrapper for API responses.
type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func wrap[T any](data T) envelope[T] {
	return envelope[T]{Success: true, Data: data}
}

// sessionCookie is the shared input field for operations that read the
// session cookie directly rather than through the request context.
type sessionCookie struct {
	Token string `cookie:"walletpilot_session" required:"false"`
}

type googleLoginInput struct {
	sessionCookie
	Body struct {
		IDToken string `json:"idToken" minLength:"1" doc:"Google ID token from the browser sign-in flow"`
	}
}

type googleLoginOutput struct {
	SetCookie string `header:"Set-Cookie"`
	Body      envelope[struct {
		Subject string `json:"subject"`
		Email   string `json:"email"`
	}]
}

type custodyLoginInput struct {
	sessionCookie
	Body struct {
		DeviceID string `json:"deviceId" minLength:"1" doc:"Browser signer device identifier"`
	}
}

// custodyLoginData echoes the values the browser signer needs to enroll the
// device and, when present, execute the account-setup challenge. None of
// these grant signing authority on their own.
type custodyLoginData struct {
	UserToken           string `json:"userToken"`
	EncryptionKey       string `json:"encryptionKey,omitempty"`
	DeviceToken         string `json:"deviceToken"`
	DeviceEncryptionKey string `json:"deviceEncryptionKey"`
	ChallengeID         string `json:"challengeId,omitempty"`
}

type custodyLoginOutput struct {
	Body envelope[custodyLoginData]
}

type logoutInput struct {
	sessionCookie
}

type logoutOutput struct {
	SetCookie string `header:"Set-Cookie"`
	Body      envelope[struct {
		Ok bool `json:"ok"`
	}]
}

type meOutput struct {
	Body envelope[struct {
		Subject     string `json:"subject"`
		Email       string `json:"email"`
		WalletReady bool   `json:"walletReady"`
	}]
}

type walletsOutput struct {
	Body envelope[[]custody.Wallet]
}

type walletPathInput struct {
	WalletID string `path:"id" doc:"Custody wallet id"`
}

type balancesOutput struct {
	Body envelope[[]custody.Balance]
}

type transactionsOutput struct {
	Body envelope[[]custody.Transaction]
}

type purchasesOutput struct {
	Body envelope[struct {
		Items []string `json:"items" doc:"Item ids the wallet holds, oldest first"`
	}]
}

type transferInput struct {
	Body struct {
		WalletID           string `json:"walletId,omitempty" doc:"Source wallet; defaults to the session's first owned wallet"`
		TokenID            string `json:"tokenId" minLength:"1"`
		DestinationAddress string `json:"destinationAddress" minLength:"1"`
		Amount             string `json:"amount" minLength:"1" doc:"Decimal string, never a float"`
		FeeLevel           string `json:"feeLevel,omitempty" doc:"LOW, MEDIUM, or HIGH; defaults to MEDIUM"`
	}
}

type pendingActionOutput struct {
	Body envelope[*action.PendingAction]
}

type purchaseInput struct {
	Body struct {
		WalletID string `json:"walletId,omitempty"`
		ItemID   string `json:"itemId" minLength:"1"`
	}
}

type purchaseConfirmInput struct {
	Body struct {
		WalletID string `json:"walletId" minLength:"1"`
		ItemID   string `json:"itemId" minLength:"1"`
	}
}

type okOutput struct {
	Body envelope[struct {
		Ok bool `json:"ok"`
	}]
}

type itemsOutput struct {
	Body envelope[[]catalog.Item]
}

type chatInput struct {
	Body struct {
		Message  string `json:"message" minLength:"1" doc:"User message for the agent"`
		WalletID string `json:"walletId,omitempty" doc:"Wallet scope for the turn; ownership-checked when supplied"`
	}
}

type chatData struct {
	Response      string                `json:"response"`
	PendingAction *action.PendingAction `json:"pendingAction,omitempty"`
}

type chatOutput struct {
	Body envelope[chatData]
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "auth-google",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/google",
		Summary:     "Sign in with a Google ID token",
		Tags:        []string{"auth"},
	}, s.handleGoogleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "auth-custody-login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/custody/login",
		Summary:     "Attach a wallet credential to the session",
		Tags:        []string{"auth"},
	}, s.handleCustodyLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "auth-logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Drop the session",
		Tags:        []string{"auth"},
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/api/v1/me",
		Summary:     "Current session identity",
		Tags:        []string{"auth"},
	}, s.handleMe)

	huma.Register(s.api, huma.Operation{
		OperationID: "wallets-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/wallets",
		Summary:     "List the session user's wallets",
		Tags:        []string{"wallets"},
	}, s.handleListWallets)

	huma.Register(s.api, huma.Operation{
		OperationID: "wallet-balances",
		Method:      http.MethodGet,
		Path:        "/api/v1/wallets/{id}/balances",
		Summary:     "Token balances for one owned wallet",
		Tags:        []string{"wallets"},
	}, s.handleWalletBalances)

	huma.Register(s.api, huma.Operation{
		OperationID: "wallet-transactions",
		Method:      http.MethodGet,
		Path:        "/api/v1/wallets/{id}/transactions",
		Summary:     "Transactions for one owned wallet",
		Tags:        []string{"wallets"},
	}, s.handleWalletTransactions)

	huma.Register(s.api, huma.Operation{
		OperationID: "wallet-purchases",
		Method:      http.MethodGet,
		Path:        "/api/v1/wallets/{id}/purchases",
		Summary:     "Recorded purchases for one owned wallet",
		Tags:        []string{"wallets"},
	}, s.handleWalletPurchases)

	huma.Register(s.api, huma.Operation{
		OperationID: "action-transfer",
		Method:      http.MethodPost,
		Path:        "/api/v1/actions/transfer",
		Summary:     "Propose a transfer and acquire a signing challenge",
		Tags:        []string{"actions"},
	}, s.handleProposeTransfer)

	huma.Register(s.api, huma.Operation{
		OperationID: "action-purchase",
		Method:      http.MethodPost,
		Path:        "/api/v1/actions/purchase",
		Summary:     "Propose a purchase and acquire a signing challenge",
		Tags:        []string{"actions"},
	}, s.handleProposePurchase)

	huma.Register(s.api, huma.Operation{
		OperationID: "action-purchase-confirm",
		Method:      http.MethodPost,
		Path:        "/api/v1/actions/purchase/confirm",
		Summary:     "Record a client-signed purchase",
		Tags:        []string{"actions"},
	}, s.handleConfirmPurchase)

	huma.Register(s.api, huma.Operation{
		OperationID: "items-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List purchasable items",
		Tags:        []string{"items"},
	}, s.handleListItems)

	huma.Register(s.api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/api/v1/chat",
		Summary:     "One agent turn",
		Tags:        []string{"chat"},
	}, s.handleChat)
}

// requireIdentity returns the session record when an identity backs it.
// An anonymous request gets 401; wallet state is not consulted here.
func requireIdentity(ctx context.Context) (*session.Record, error) {
	rec := session.FromContext(ctx)
	if !rec.HasIdentity() {
		return nil, huma.NewError(http.StatusUnauthorized, "sign in required")
	}
	return rec, nil
}

// requireWalletCredential returns the session record when custody login has
// completed. Identity without a credential is 403, not 401: the caller is
// known, just not wallet-ready.
func requireWalletCredential(ctx context.Context) (*session.Record, error) {
	rec, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if !rec.HasWalletCredential() {
		return nil, huma.NewError(http.StatusForbidden, "wallet setup required")
	}
	return rec, nil
}

// mapError translates a domain error into a huma status error. Server-side
// failures are logged and sanitized; client errors keep their message.
func mapError(op string, err error) error {
	status := piloterr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", "error", err)
		msg := "internal error"
		if status == http.StatusBadGateway {
			msg = "upstream service failure"
		}
		return huma.NewError(status, msg)
	}
	return huma.NewError(status, err.Error())
}

func (s *Server) handleGoogleLogin(ctx context.Context, in *googleLoginInput) (*googleLoginOutput, error) {
	claims, err := s.svc.Identity.Verify(ctx, in.Body.IDToken)
	if err != nil {
		return nil, mapError("google login", err)
	}

	rec := &session.Record{
		Subject:   claims.Subject,
		Email:     claims.Email,
		CreatedAt: time.Now(),
	}
	// Re-authenticating as the same user keeps the wallet credential; a
	// different Google account starts from scratch.
	if prev := session.FromContext(ctx); prev != nil && prev.Subject == claims.Subject {
		rec.WalletCredential = prev.WalletCredential
	}

	token, err := session.NewToken()
	if err != nil {
		return nil, mapError("google login", err)
	}
	if in.Token != "" {
		s.svc.Sessions.Delete(in.Token)
	}
	s.svc.Sessions.Put(token, rec)

	out := &googleLoginOutput{SetCookie: session.NewCookie(token, s.cfg.SecureCookies).String()}
	out.Body.Success = true
	out.Body.Data.Subject = claims.Subject
	out.Body.Data.Email = claims.Email
	return out, nil
}

func (s *Server) handleCustodyLogin(ctx context.Context, in *custodyLoginInput) (*custodyLoginOutput, error) {
	rec, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}

	device, err := s.svc.Gateway.CreateDeviceToken(ctx, in.Body.DeviceID)
	if err != nil {
		return nil, mapError("custody login", err)
	}

	// Creation is not idempotent upstream; an existing user is fine.
	if err := s.svc.Gateway.CreateUser(ctx, rec.Subject); err != nil {
		slog.Debug("custody user create skipped", "error", err)
	}

	cred, err := s.svc.Gateway.CreateUserToken(ctx, rec.Subject)
	if err != nil {
		return nil, mapError("custody login", err)
	}

	data := custodyLoginData{
		UserToken:           cred.UserToken,
		EncryptionKey:       cred.EncryptionKey,
		DeviceToken:         device.Token,
		DeviceEncryptionKey: device.EncryptionKey,
	}
	// Initialization mints a PIN/wallet setup challenge for new users.
	// Already-initialized users have nothing to execute.
	if challenge, err := s.svc.Gateway.InitializeUser(ctx, cred, s.svc.blockchains()); err != nil {
		slog.Debug("custody user initialize skipped", "error", err)
	} else if challenge != nil {
		data.ChallengeID = challenge.ID
	}

	updated := *rec
	updated.WalletCredential = cred
	s.svc.Sessions.Put(in.Token, &updated)

	return &custodyLoginOutput{Body: wrap(data)}, nil
}

func (s *Server) handleLogout(_ context.Context, in *logoutInput) (*logoutOutput, error) {
	if in.Token != "" {
		s.svc.Sessions.Delete(in.Token)
	}
	out := &logoutOutput{SetCookie: session.ExpiredCookie().String()}
	out.Body.Success = true
	out.Body.Data.Ok = true
	return out, nil
}

func (s *Server) handleMe(ctx context.Context, _ *struct{}) (*meOutput, error) {
	rec, err := requireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	out := &meOutput{}
	out.Body.Success = true
	out.Body.Data.Subject = rec.Subject
	out.Body.Data.Email = rec.Email
	out.Body.Data.WalletReady = rec.HasWalletCredential()
	return out, nil
}

func (s *Server) handleListWallets(ctx context.Context, _ *struct{}) (*walletsOutput, error) {
	rec, err := requireWalletCredential(ctx)
	if err != nil {
		return nil, err
	}
	wallets, err := s.svc.Gateway.ListWallets(ctx, rec.WalletCredential)
	if err != nil {
		return nil, mapError("list wallets", err)
	}
	return &walletsOutput{Body: wrap(wallets)}, nil
}

func (s *Server) handleWalletBalances(ctx context.Context, in *walletPathInput) (*balancesOutput, error) {
	rec, err := requireWalletCredential(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Ownership.VerifyOwnership(ctx, rec.WalletCredential, in.WalletID); err != nil {
		return nil, mapError("wallet balances", err)
	}
	balances, err := s.svc.Gateway.GetBalances(ctx, rec.WalletCredential, in.WalletID)
	if err != nil {
		return nil, mapError("wallet balances", err)
	}
	return &balancesOutput{Body: wrap(balances)}, nil
}

func (s *Server) handleWalletTransactions(ctx context.Context, in *walletPathInput) (*transactionsOutput, error) {
	rec, err := requireWalletCredential(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Ownership.VerifyOwnership(ctx, rec.WalletCredential, in.WalletID); err != nil {
		return nil, mapError("wallet transactions", err)
	}
	txs, err := s.svc.Gateway.ListTransactions(ctx, rec.WalletCredential, in.WalletID)
	if err != nil {
		return nil, mapError("wallet transactions", err)
	}
	return &transactionsOutput{Body: wrap(txs)}, nil
}

func (s *Server) handleWalletPurchases(ctx context.Context, in *walletPathInput) (*purchasesOutput, error) {
	rec, err := requireWalletCredential(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Ownership.VerifyOwnership(ctx, rec.WalletCredential, in.WalletID); err != nil {
		return nil, mapError("wallet purchases", err)
	}
	items, err := s.svc.Engine.Purchases(ctx, in.WalletID)
	if err != nil {
		return nil, mapError("wallet purchases", err)
	}
	out := &purchasesOutput{}
	out.Body.Success = true
	out.Body.Data.Items = items
	return out, nil
}

func (s *Server) handleProposeTransfer(ctx context.Context, in *transferInput) (*pendingActionOutput, error) {
	rec, err := requireWalletCredential(ctx)
	if err != nil {
		return nil, err
	}
	walletID, err := s.resolveWalletID(ctx, rec.WalletCredential, in.Body.WalletID)
	if err != nil {
		return nil, mapError("propose transfer", err)
	}
	pa, err := s.svc.Engine.ProposeTransfer(ctx, rec.WalletCredential, action.TransferInput{
		WalletID:           walletID,
		TokenID:            in.Body.TokenID,
		DestinationAddress: in.Body.DestinationAddress,
		Amount:             in.Body.Amount,
		FeeLevel:           in.Body.FeeLevel,
	})
	if err != nil {
		return nil, mapError("propose transfer", err)
	}
	return &pendingActionOutput{Body: wrap(pa)}, nil
}

func (s *Server) handleProposePurchase(ctx context.Context, in *purchaseInput) (*pendingActionOutput, error) {
	rec, err := requireWalletCredential(ctx)
	if err != nil {
		return nil, err
	}
	walletID, err := s.resolveWalletID(ctx, rec.WalletCredential, in.Body.WalletID)
	if err != nil {
		return nil, mapError("propose purchase", err)
	}
	pa, err := s.svc.Engine.ProposePurchase(ctx, rec.WalletCredential, in.Body.ItemID, walletID)
	if err != nil {
		return nil, mapError("propose purchase", err)
	}
	return &pendingActionOutput{Body: wrap(pa)}, nil
}

func (s *Server) handleConfirmPurchase(ctx context.Context, in *purchaseConfirmInput) (*okOutput, error) {
	rec, err := requireWalletCredential(ctx)
	if err != nil {
		return nil, err
	}
	// The client asserts it signed; the wallet still has to be the
	// session's before anything is recorded against it.
	if err := s.svc.Ownership.VerifyOwnership(ctx, rec.WalletCredential, in.Body.WalletID); err != nil {
		return nil, mapError("confirm purchase", err)
	}
	if err := s.svc.Engine.ConfirmPurchase(ctx, in.Body.WalletID, in.Body.ItemID); err != nil {
		return nil, mapError("confirm purchase", err)
	}
	out := &okOutput{}
	out.Body.Success = true
	out.Body.Data.Ok = true
	return out, nil
}

func (s *Server) handleListItems(_ context.Context, _ *struct{}) (*itemsOutput, error) {
	return &itemsOutput{Body: wrap(s.svc.Catalog.List())}, nil
}

func (s *Server) handleChat(ctx context.Context, in *chatInput) (*chatOutput, error) {
	rec, err := requireWalletCredential(ctx)
	if err != nil {
		return nil, err
	}
	walletID, err := s.resolveWalletID(ctx, rec.WalletCredential, in.Body.WalletID)
	if err != nil {
		return nil, mapError("chat", err)
	}

	tools, err := agent.NewToolset(agent.ToolsetConfig{
		Gateway:         s.svc.Gateway,
		Ownership:       s.svc.Ownership,
		Engine:          s.svc.Engine,
		Catalog:         s.svc.Catalog,
		Credential:      rec.WalletCredential,
		DefaultWalletID: walletID,
	})
	if err != nil {
		return nil, mapError("chat", err)
	}

	result, err := s.svc.Loop.Run(ctx, tools, in.Body.Message)
	if err != nil {
		return nil, mapError("chat", err)
	}

	return &chatOutput{Body: wrap(chatData{
		Response:      result.Text,
		PendingAction: result.PendingAction,
	})}, nil
}

// resolveWalletID applies the wallet-scope rule shared by actions and chat:
// an omitted id means the session's first owned wallet, a supplied id is
// verified against the live list before use.
func (s *Server) resolveWalletID(ctx context.Context, cred *custody.Credential, walletID string) (string, error) {
	if walletID == "" {
		w, err := s.svc.Ownership.DefaultWallet(ctx, cred)
		if err != nil {
			return "", err
		}
		return w.ID, nil
	}
	if err := s.svc.Ownership.VerifyOwnership(ctx, cred, walletID); err != nil {
		return "", err
	}
	return walletID, nil
}
