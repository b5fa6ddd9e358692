package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PostLoginHook runs after credential resolution and before token
// issuance. Returning an error aborts the login; the error is surfaced to
// the caller wrapped in HookRejectionError. Hooks are registered at
// construction time.
type PostLoginHook func(identity *Identity) error

// HookRejectionError wraps a post-login hook veto so callers can tell a
// business rejection from an infrastructure failure.
type HookRejectionError struct {
	Err error
}

func (e *HookRejectionError) Error() string { return e.Err.Error() }

func (e *HookRejectionError) Unwrap() error { return e.Err }

// Credentials carries one login attempt. AccessCode, when set, is the
// whole credential and the password is ignored.
type Credentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	AccessCode string `json:"access_code"`
	DeviceName string `json:"device_name"`
}

// Service issues and revokes tokens.
type Service struct {
	store    Store
	resolver *Resolver
	hook     PostLoginHook
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPostLoginHook registers a post-resolution validation hook.
func WithPostLoginHook(hook PostLoginHook) ServiceOption {
	return func(s *Service) { s.hook = hook }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a login service.
func NewService(store Store, resolver *Resolver, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		resolver: resolver,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login resolves the credentials and, on success, records the login time
// and issues a fresh token bound to the identity. Existing tokens for the
// same identity stay valid; every device holds its own.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Identity, *Token, error) {
	var identity *Identity

	if creds.AccessCode != "" {
		// An access code is itself the credential; no password check.
		found, err := s.store.GetIdentityByAccessCode(ctx, creds.AccessCode)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, nil, ErrInvalidCredentials
			}
			return nil, nil, fmt.Errorf("access code lookup: %w", err)
		}
		identity = found
	} else {
		found, err := s.resolver.Resolve(ctx, creds.Username, creds.Password)
		if err != nil {
			return nil, nil, err
		}
		if found == nil {
			return nil, nil, ErrInvalidCredentials
		}
		identity = found
	}

	if s.hook != nil {
		if err := s.hook(identity); err != nil {
			return nil, nil, &HookRejectionError{Err: err}
		}
	}

	now := s.now().UTC()
	if err := s.store.UpdateLastLogin(ctx, identity.ID, now); err != nil {
		return nil, nil, fmt.Errorf("update last login: %w", err)
	}
	identity.LastLogin = &now

	key, err := GenerateTokenKey()
	if err != nil {
		return nil, nil, err
	}
	token := &Token{
		Key:        key,
		IdentityID: identity.ID,
		DeviceName: creds.DeviceName,
		CreatedAt:  now,
	}
	if err := s.store.CreateToken(ctx, token); err != nil {
		return nil, nil, fmt.Errorf("create token: %w", err)
	}
	return identity, token, nil
}

// Logout revokes exactly the given token. Other tokens held by the same
// identity are untouched.
func (s *Service) Logout(ctx context.Context, key string) error {
	if err := s.store.DeleteToken(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
