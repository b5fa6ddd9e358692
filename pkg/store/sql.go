package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/theschoolhq/gatekeeper/pkg/auth"
)

// SQLStore implements auth.Store on top of database/sql.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store around an open database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

const identityColumns = `id, username, email, phone, access_code, password_hash, is_active, last_login, created_at, updated_at`

func (s *SQLStore) getIdentity(ctx context.Context, where string, arg interface{}) (*auth.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE ` + where
	var (
		ident                    auth.Identity
		email, phone, accessCode sql.NullString
		lastLogin                sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&ident.ID,
		&ident.Username,
		&email,
		&phone,
		&accessCode,
		&ident.PasswordHash,
		&ident.IsActive,
		&lastLogin,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	ident.Email = email.String
	ident.Phone = phone.String
	ident.AccessCode = accessCode.String
	if lastLogin.Valid {
		t := lastLogin.Time
		ident.LastLogin = &t
	}

	groups, err := s.identityGroups(ctx, ident.ID)
	if err != nil {
		return nil, err
	}
	ident.Groups = groups
	return &ident, nil
}

func (s *SQLStore) identityGroups(ctx context.Context, identityID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.name
		FROM groups g
		JOIN identity_groups ig ON ig.group_id = g.id
		WHERE ig.identity_id = $1
		ORDER BY g.name
	`, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get identity groups: %w", err)
	}
	defer rows.Close()

	groups := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, name)
	}
	return groups, rows.Err()
}

// GetIdentityByUsername retrieves an identity by exact username.
func (s *SQLStore) GetIdentityByUsername(ctx context.Context, username string) (*auth.Identity, error) {
	return s.getIdentity(ctx, "username = $1", username)
}

// GetIdentityByEmail retrieves an identity by exact email.
func (s *SQLStore) GetIdentityByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	return s.getIdentity(ctx, "email = $1", email)
}

// GetIdentityByPhone retrieves an identity by phone, case-insensitively.
func (s *SQLStore) GetIdentityByPhone(ctx context.Context, phone string) (*auth.Identity, error) {
	return s.getIdentity(ctx, "LOWER(phone) = LOWER($1)", phone)
}

// GetIdentityByAccessCode retrieves an identity by exact access code.
func (s *SQLStore) GetIdentityByAccessCode(ctx context.Context, code string) (*auth.Identity, error) {
	return s.getIdentity(ctx, "access_code = $1", code)
}

// UpdateLastLogin records the time of a successful login.
func (s *SQLStore) UpdateLastLogin(ctx context.Context, identityID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE identities SET last_login = $1, updated_at = $1 WHERE id = $2`, at, identityID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// CreateToken persists a new token. The primary key on the token key
// enforces global uniqueness.
func (s *SQLStore) CreateToken(ctx context.Context, token *auth.Token) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (key, identity_id, device_name, created_at)
		VALUES ($1, $2, $3, $4)
	`, token.Key, token.IdentityID, token.DeviceName, token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicate
		}
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetTokenByKey retrieves a token with its identity joined in, then the
// identity's group names, in one store call.
func (s *SQLStore) GetTokenByKey(ctx context.Context, key string) (*auth.Token, *auth.Identity, error) {
	var (
		token                    auth.Token
		ident                    auth.Identity
		email, phone, accessCode sql.NullString
		lastLogin                sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT t.key, t.identity_id, t.device_name, t.created_at,
		       i.id, i.username, i.email, i.phone, i.access_code, i.password_hash,
		       i.is_active, i.last_login, i.created_at, i.updated_at
		FROM tokens t
		JOIN identities i ON i.id = t.identity_id
		WHERE t.key = $1
	`, key).Scan(
		&token.Key,
		&token.IdentityID,
		&token.DeviceName,
		&token.CreatedAt,
		&ident.ID,
		&ident.Username,
		&email,
		&phone,
		&accessCode,
		&ident.PasswordHash,
		&ident.IsActive,
		&lastLogin,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get token: %w", err)
	}
	ident.Email = email.String
	ident.Phone = phone.String
	ident.AccessCode = accessCode.String
	if lastLogin.Valid {
		t := lastLogin.Time
		ident.LastLogin = &t
	}

	groups, err := s.identityGroups(ctx, ident.ID)
	if err != nil {
		return nil, nil, err
	}
	ident.Groups = groups
	return &token, &ident, nil
}

// DeleteToken revokes a token by key.
func (s *SQLStore) DeleteToken(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

const verificationColumns = `id, email, phone, otp, expired, created_at`

func (s *SQLStore) getVerification(ctx context.Context, where string, arg interface{}) (*auth.Verification, error) {
	query := `SELECT ` + verificationColumns + ` FROM verifications WHERE ` + where
	var (
		v            auth.Verification
		email, phone sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&v.ID, &email, &phone, &v.Code, &v.Expired, &v.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	v.Email = email.String
	v.Phone = phone.String
	return &v, nil
}

// FindActiveVerificationByEmail returns the pending verification for an
// email address, if any.
func (s *SQLStore) FindActiveVerificationByEmail(ctx context.Context, email string) (*auth.Verification, error) {
	return s.getVerification(ctx, "email = $1 AND expired = FALSE", email)
}

// FindActiveVerificationByPhone returns the pending verification for a
// phone number, if any.
func (s *SQLStore) FindActiveVerificationByPhone(ctx context.Context, phone string) (*auth.Verification, error) {
	return s.getVerification(ctx, "phone = $1 AND expired = FALSE", phone)
}

// CreateVerification persists a new verification record. A violation of
// either the unique code or the one-active-per-identifier index surfaces
// as auth.ErrDuplicate so the reset flow can fall back to reuse.
func (s *SQLStore) CreateVerification(ctx context.Context, v *auth.Verification) error {
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO verifications (email, phone, otp, expired, created_at)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, FALSE, $4)
		RETURNING id
	`, v.Email, v.Phone, v.Code, now).Scan(&v.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicate
		}
		return fmt.Errorf("failed to create verification: %w", err)
	}
	v.CreatedAt = now
	return nil
}

// GetVerificationByCode retrieves a verification by its code, expired or
// not.
func (s *SQLStore) GetVerificationByCode(ctx context.Context, code string) (*auth.Verification, error) {
	return s.getVerification(ctx, "otp = $1", code)
}

// ConsumeVerification sets the identity's password hash and marks the
// verification expired in a single transaction. Returns auth.ErrNotFound
// when the record was already consumed by a concurrent request.
func (s *SQLStore) ConsumeVerification(ctx context.Context, verificationID, identityID int64, newHash string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin consume transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE identities SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		newHash, now, identityID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if affected == 0 {
		return auth.ErrNotFound
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE verifications SET expired = TRUE WHERE id = $1 AND expired = FALSE`,
		verificationID)
	if err != nil {
		return fmt.Errorf("failed to expire verification: %w", err)
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to expire verification: %w", err)
	}
	if affected == 0 {
		// Already consumed; rolling back leaves the password untouched.
		return auth.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit consume transaction: %w", err)
	}
	return nil
}

// ListGroups returns all authorization groups.
func (s *SQLStore) ListGroups(ctx context.Context) ([]auth.Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []auth.Group{}
	for rows.Next() {
		var g auth.Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// isUniqueViolation reports whether err is a uniqueness constraint
// violation from either supported driver.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
