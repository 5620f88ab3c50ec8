// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Walletpilot Contributors

package session

import (
	"context"
	"net/http"
	"time"
)

const (
	// CookieName carries the opaque session token.
	CookieName = "walletpilot_session"

	cookieMaxAge = 7 * 24 * time.Hour
)

type contextKey int

const recordKey contextKey = iota

// FromContext extracts the session record attached by Attach, if any.
func FromContext(ctx context.Context) *Record {
	if rec, ok := ctx.Value(recordKey).(*Record); ok {
		return rec
	}
	return nil
}

// NewCookie builds the session cookie for token.
func NewCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		Expires:  time.Now().Add(cookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	}
}

// ExpiredCookie builds the cookie that clears the session.
func ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetCookie writes the session cookie for token.
func SetCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, NewCookie(token, secure))
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, ExpiredCookie())
}

// TokenFromRequest returns the session token carried by the request cookie.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Attach resolves the request's session record, if present, and stores it in
// the request context. It never rejects; operations decide what session tier
// they require from the record's HasIdentity/HasWalletCredential answers.
func Attach(store Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			rec, ok := store.Get(token)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), recordKey, rec)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
