package auth

import (
	"context"
	"errors"
	"time"
)

// Store-level sentinels. Implementations translate driver errors into
// these so the core never inspects driver-specific error codes.
var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a create violates a uniqueness
	// constraint. The reset flow treats it as "reuse the existing record".
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the persistence boundary for identities, tokens and
// verification records. Implementations must enforce the uniqueness
// constraints from the data model: one identity per username, per non-null
// email, phone and access code; globally unique token keys; globally
// unique verification codes; and at most one non-expired verification per
// email or phone.
type Store interface {
	GetIdentityByUsername(ctx context.Context, username string) (*Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)
	// GetIdentityByPhone matches case-insensitively.
	GetIdentityByPhone(ctx context.Context, phone string) (*Identity, error)
	GetIdentityByAccessCode(ctx context.Context, code string) (*Identity, error)
	UpdateLastLogin(ctx context.Context, identityID int64, at time.Time) error

	CreateToken(ctx context.Context, token *Token) error
	// GetTokenByKey returns the token together with its identity and the
	// identity's group names, loaded in the same store call.
	GetTokenByKey(ctx context.Context, key string) (*Token, *Identity, error)
	DeleteToken(ctx context.Context, key string) error

	FindActiveVerificationByEmail(ctx context.Context, email string) (*Verification, error)
	FindActiveVerificationByPhone(ctx context.Context, phone string) (*Verification, error)
	CreateVerification(ctx context.Context, v *Verification) error
	GetVerificationByCode(ctx context.Context, code string) (*Verification, error)
	// ConsumeVerification atomically sets the identity's password hash and
	// marks the verification expired. Both writes commit together or not
	// at all; a partial application is an invariant violation.
	ConsumeVerification(ctx context.Context, verificationID, identityID int64, newHash string) error

	ListGroups(ctx context.Context) ([]Group, error)
}

// Sender delivers a verification code to its email or phone target.
// Delivery is fire-and-forget from the reset flow's perspective.
type Sender interface {
	Send(ctx context.Context, v *Verification) error
}
