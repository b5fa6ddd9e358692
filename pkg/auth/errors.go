package auth

import (
	"errors"
	"fmt"
)

// Authentication and reset-flow failures. Login failures are deliberately
// vague (ErrInvalidCredentials covers wrong password, unknown identifier
// and inactive account alike) while token validation distinguishes
// ErrInactiveAccount from ErrInvalidToken.
var (
	ErrInvalidCredentials = errors.New("unable to log in with provided credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInactiveAccount    = errors.New("user inactive or deleted")

	ErrMissingIdentifier   = errors.New("you should provide either email or phone")
	ErrAmbiguousIdentifier = errors.New("you should provide either email or phone, not both")
	ErrUnknownIdentifier   = errors.New("user doesn't exist")
	ErrInvalidPhone        = errors.New("enter a valid phone number")

	ErrSecretMismatch = errors.New("passwords don't match")
	ErrUnknownCode    = errors.New("password reset request not found")
	ErrRequestExpired = errors.New("password reset expired")
)

// Malformed-credential sub-reasons reported by the token authenticator.
const (
	ReasonNoCredentials  = "no credentials provided"
	ReasonContainsSpaces = "token string should not contain spaces"
	ReasonInvalidChars   = "token string contains invalid characters"
)

// MalformedCredentialError reports a syntactically invalid bearer
// credential that named the token scheme but could not be parsed.
type MalformedCredentialError struct {
	Reason string
}

func (e *MalformedCredentialError) Error() string {
	return fmt.Sprintf("invalid token header: %s", e.Reason)
}

// IsAuthFailure reports whether err is an authentication failure that
// transport adapters downgrade to an anonymous request, as opposed to an
// infrastructure error that must surface to the caller.
func IsAuthFailure(err error) bool {
	var malformed *MalformedCredentialError
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrInactiveAccount) ||
		errors.As(err, &malformed)
}
