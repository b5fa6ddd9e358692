// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application are defined here. The
// request-scoped acting identity lives in the request's context.Context,
// so it is owned by exactly one in-flight request and vanishes with it on
// every exit path; nothing is ever parked in a shared variable.
package contextkeys

import (
	"context"

	"github.com/theschoolhq/gatekeeper/pkg/auth"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains the authenticated *auth.Identity.
	// Set by: middleware.TokenAuth, ws.Gateway
	// Absent for anonymous requests.
	IdentityKey Key = "identity"

	// TokenKey contains the *auth.Token that authenticated the request.
	// Set by: middleware.TokenAuth, ws.Gateway
	TokenKey Key = "token"

	// RequestIDKey contains the request ID string (UUID).
	// Set by: middleware.TokenAuth
	RequestIDKey Key = "request_id"

	// ReferrerKey contains the originating request's Referer header.
	// Set by: middleware.TokenAuth
	ReferrerKey Key = "referrer"
)

// WithIdentity adds the acting identity to the context
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// IdentityFrom retrieves the acting identity, or nil when anonymous
func IdentityFrom(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(IdentityKey).(*auth.Identity)
	return identity
}

// WithToken adds the authenticating token to the context
func WithToken(ctx context.Context, token *auth.Token) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

// TokenFrom retrieves the authenticating token, or nil
func TokenFrom(ctx context.Context) *auth.Token {
	token, _ := ctx.Value(TokenKey).(*auth.Token)
	return token
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestIDFrom retrieves the request ID, or ""
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithReferrer adds the originating referrer to the context
func WithReferrer(ctx context.Context, referrer string) context.Context {
	return context.WithValue(ctx, ReferrerKey, referrer)
}

// ReferrerFrom retrieves the referrer, or ""
func ReferrerFrom(ctx context.Context) string {
	ref, _ := ctx.Value(ReferrerKey).(string)
	return ref
}
