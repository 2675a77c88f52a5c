// Package postgres owns the relational schema shared by the store
// implementations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id         SERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		admin      TEXT NOT NULL,
		suspended  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS organization_delegates (
		org_id      INTEGER NOT NULL REFERENCES organizations (id),
		account     TEXT NOT NULL,
		valid_until BIGINT NOT NULL,
		PRIMARY KEY (org_id, account)
	)`,
	`CREATE TABLE IF NOT EXISTS certificate_types (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		org_id     INTEGER NOT NULL REFERENCES organizations (id),
		created_at BIGINT NOT NULL,
		UNIQUE (org_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		cert_type_id BIGINT NOT NULL REFERENCES certificate_types (id),
		owner        TEXT NOT NULL,
		issued_at    BIGINT NOT NULL,
		issued_by    INTEGER NOT NULL REFERENCES organizations (id),
		signature    BYTEA NOT NULL,
		notes        TEXT NOT NULL DEFAULT '',
		attachment   TEXT NOT NULL DEFAULT '',
		valid_until  BIGINT NOT NULL DEFAULT 0,
		state        TEXT NOT NULL,
		PRIMARY KEY (cert_type_id, owner)
	)`,
	`CREATE INDEX IF NOT EXISTS credentials_valid_until_idx
		ON credentials (valid_until) WHERE valid_until <> 0`,
	`CREATE INDEX IF NOT EXISTS credentials_issued_by_idx
		ON credentials (issued_by)`,
	`CREATE TABLE IF NOT EXISTS retired_credential_keys (
		cert_type_id BIGINT NOT NULL,
		owner        TEXT NOT NULL,
		PRIMARY KEY (cert_type_id, owner)
	)`,
	`CREATE TABLE IF NOT EXISTS did_owners (
		identity TEXT PRIMARY KEY,
		owner    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS did_delegates (
		identity      TEXT NOT NULL,
		delegate_type TEXT NOT NULL,
		delegate      TEXT NOT NULL,
		expires_at    BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (identity, delegate_type, delegate)
	)`,
	`CREATE TABLE IF NOT EXISTS did_attributes (
		identity    TEXT NOT NULL,
		name        TEXT NOT NULL,
		value       BYTEA NOT NULL,
		valid_until BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (identity, name)
	)`,
}

// Ensure creates any missing tables and indexes. Idempotent; safe to run
// on every startup.
func Ensure(ctx context.Context, db *sql.DB) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
