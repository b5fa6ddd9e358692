package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// AuthKeyword is the scheme keyword expected in bearer credentials:
// "Token <key>". Matching is case-insensitive.
const AuthKeyword = "Token"

// TokenAuthenticator resolves raw bearer credentials to an identity and
// the token record that authenticated it. Both transport adapters share
// one instance; they differ only in where the raw credential comes from.
type TokenAuthenticator struct {
	store Store
}

// NewTokenAuthenticator creates a token authenticator backed by store.
func NewTokenAuthenticator(store Store) *TokenAuthenticator {
	return &TokenAuthenticator{store: store}
}

// Authenticate parses a raw credential and validates the embedded key.
//
// A (nil, nil, nil) return means the credential did not attempt token
// authentication at all (empty, or a different scheme); callers treat the
// request as anonymous. A credential that names the token scheme but is
// syntactically broken fails with MalformedCredentialError.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, raw []byte) (*Identity, *Token, error) {
	parts := bytes.Fields(raw)
	if len(parts) == 0 || !bytes.EqualFold(parts[0], []byte(AuthKeyword)) {
		return nil, nil, nil
	}
	if len(parts) == 1 {
		return nil, nil, &MalformedCredentialError{Reason: ReasonNoCredentials}
	}
	if len(parts) > 2 {
		return nil, nil, &MalformedCredentialError{Reason: ReasonContainsSpaces}
	}
	if !utf8.Valid(parts[1]) {
		return nil, nil, &MalformedCredentialError{Reason: ReasonInvalidChars}
	}
	return a.AuthenticateKey(ctx, string(parts[1]))
}

// AuthenticateKey validates a bare token key. The identity and its group
// names are loaded in the same store call as the token.
func (a *TokenAuthenticator) AuthenticateKey(ctx context.Context, key string) (*Identity, *Token, error) {
	token, identity, err := a.store.GetTokenByKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, fmt.Errorf("token lookup: %w", err)
	}
	if !identity.IsActive {
		// More specific than the login path on purpose: a presented token
		// already proves knowledge of the key.
		return nil, nil, ErrInactiveAccount
	}
	return identity, token, nil
}
