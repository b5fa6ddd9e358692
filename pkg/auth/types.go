package auth

import "time"

// Identity represents a registered principal capable of authenticating.
// Username is the primary login identifier; email, phone and access code
// are optional secondary identifiers, each unique across identities when
// set. Identities are provisioned elsewhere; this package only reads them
// and updates their credentials.
type Identity struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	AccessCode   string     `json:"-"` // Never expose access codes
	PasswordHash string     `json:"-"` // Never expose hashes
	IsActive     bool       `json:"is_active"`
	Groups       []string   `json:"groups"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Token is an opaque bearer credential bound to exactly one identity.
// An identity may hold many tokens, one per device or session; a token
// never expires on its own and lives until it is revoked by logout.
type Token struct {
	Key        string    `json:"-"` // Returned once at login, never listed
	IdentityID int64     `json:"identity_id"`
	DeviceName string    `json:"device_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Verification is a one-time password-reset code bound to either an email
// address or a phone number, never both. Records are marked expired when
// consumed and are retained afterwards for audit.
type Verification struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Code      string    `json:"-"` // Delivered out of band, never echoed in responses
	Expired   bool      `json:"expired"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is an authorization group an identity may belong to.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
