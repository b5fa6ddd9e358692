package auth

import (
	"context"
	"errors"
	"fmt"
)

// Field selects which identity column a login identifier is matched
// against.
type Field string

const (
	FieldUsername Field = "username"
	FieldEmail    Field = "email"
	FieldPhone    Field = "phone"
)

// ParseField converts a configuration string into a Field.
func ParseField(s string) (Field, error) {
	switch Field(s) {
	case FieldUsername, FieldEmail, FieldPhone:
		return Field(s), nil
	}
	return "", fmt.Errorf("unknown login field %q", s)
}

// Resolver maps a login identifier and secret to at most one identity.
// It tries its configured fields in order and stops at the first match.
type Resolver struct {
	store  Store
	hasher Hasher
	fields []Field

	// dummyHash is compared against when no candidate identity exists, so
	// the miss path costs one hash comparison just like the hit path.
	dummyHash string
}

// NewResolver creates a resolver that tries the given fields in order.
// With no fields it matches on phone, the deployment's primary login
// identifier.
func NewResolver(store Store, hasher Hasher, fields ...Field) *Resolver {
	if len(fields) == 0 {
		fields = []Field{FieldPhone}
	}
	dummy, err := hasher.Hash("gatekeeper-timing-equalizer")
	if err != nil {
		// Hash only fails on invalid parameters; an empty dummy still
		// exercises the comparison path below.
		dummy = ""
	}
	return &Resolver{
		store:     store,
		hasher:    hasher,
		fields:    fields,
		dummyHash: dummy,
	}
}

// Resolve returns the identity matching identifier whose stored hash
// matches secret and which is active, or nil. Unknown identifiers, wrong
// secrets and inactive accounts are indistinguishable here; only
// infrastructure errors are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, identifier, secret string) (*Identity, error) {
	if identifier == "" || secret == "" {
		return nil, nil
	}

	var identity *Identity
	for _, field := range r.fields {
		found, err := r.lookup(ctx, field, identifier)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("identity lookup by %s: %w", field, err)
		}
		identity = found
		break
	}

	if identity == nil {
		// Burn one comparison so a nonexistent account takes as long as a
		// wrong password.
		r.hasher.Compare(r.dummyHash, secret)
		return nil, nil
	}

	if !r.hasher.Compare(identity.PasswordHash, secret) {
		return nil, nil
	}
	if !identity.IsActive {
		return nil, nil
	}
	return identity, nil
}

func (r *Resolver) lookup(ctx context.Context, field Field, identifier string) (*Identity, error) {
	switch field {
	case FieldUsername:
		return r.store.GetIdentityByUsername(ctx, identifier)
	case FieldEmail:
		return r.store.GetIdentityByEmail(ctx, identifier)
	case FieldPhone:
		return r.store.GetIdentityByPhone(ctx, identifier)
	}
	return nil, fmt.Errorf("unknown login field %q", field)
}
