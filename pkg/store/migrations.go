package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns the schema migrations for the given driver. The DDL
// differs between postgres and sqlite only in column types; constraints
// are identical, including the partial unique indexes that allow at most
// one non-expired verification per email or phone.
func Migrations(driver string) []Migration {
	serial := "BIGSERIAL PRIMARY KEY"
	boolTrue := "BOOLEAN NOT NULL DEFAULT TRUE"
	boolFalse := "BOOLEAN NOT NULL DEFAULT FALSE"
	if driver == "sqlite3" {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
		boolTrue = "BOOLEAN NOT NULL DEFAULT 1"
		boolFalse = "BOOLEAN NOT NULL DEFAULT 0"
	}

	return []Migration{
		{
			Version:     1,
			Description: "Create identities and groups tables",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS identities (
					id %s,
					username VARCHAR(150) NOT NULL UNIQUE,
					email VARCHAR(254) UNIQUE,
					phone VARCHAR(150) UNIQUE,
					access_code VARCHAR(150) UNIQUE,
					password_hash VARCHAR(255) NOT NULL,
					is_active %s,
					last_login TIMESTAMP,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE TABLE IF NOT EXISTS groups (
					id %s,
					name VARCHAR(150) NOT NULL UNIQUE
				);

				CREATE TABLE IF NOT EXISTS identity_groups (
					identity_id BIGINT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
					group_id BIGINT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
					PRIMARY KEY (identity_id, group_id)
				);

				CREATE INDEX IF NOT EXISTS idx_identities_phone_lower ON identities(LOWER(phone));
			`, serial, boolTrue, serial),
		},
		{
			Version:     2,
			Description: "Create tokens table",
			SQL: `
				CREATE TABLE IF NOT EXISTS tokens (
					key VARCHAR(40) PRIMARY KEY,
					identity_id BIGINT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
					device_name VARCHAR(255) NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_tokens_identity_id ON tokens(identity_id);
			`,
		},
		{
			Version:     3,
			Description: "Create verifications table",
			SQL: fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS verifications (
					id %s,
					email VARCHAR(254),
					phone VARCHAR(150),
					otp VARCHAR(10) NOT NULL UNIQUE,
					expired %s,
					created_at TIMESTAMP NOT NULL
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_verifications_active_email
					ON verifications(email) WHERE expired = FALSE AND email IS NOT NULL;
				CREATE UNIQUE INDEX IF NOT EXISTS idx_verifications_active_phone
					ON verifications(phone) WHERE expired = FALSE AND phone IS NOT NULL;
				CREATE INDEX IF NOT EXISTS idx_verifications_otp ON verifications(otp);
			`, serial, boolFalse),
		},
	}
}

// RunMigrations applies all migrations in order. Each migration runs in
// its own transaction.
func RunMigrations(ctx context.Context, db *sql.DB, driver string) error {
	for _, m := range Migrations(driver) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}
