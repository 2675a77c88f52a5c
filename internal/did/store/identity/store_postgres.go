package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"credreg/internal/did/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

// PostgresStore persists identity records across the did_owners,
// did_delegates, and did_attributes tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) OwnerOf(ctx context.Context, identity domain.AccountID) (domain.AccountID, error) {
	var owner string
	err := s.db.QueryRowContext(ctx, `
		SELECT owner FROM did_owners WHERE identity = $1
	`, string(identity)).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return identity, nil
	}
	if err != nil {
		return "", fmt.Errorf("query owner: %w", err)
	}
	return domain.AccountID(owner), nil
}

func (s *PostgresStore) SetOwner(ctx context.Context, identity, owner domain.AccountID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO did_owners (identity, owner) VALUES ($1, $2)
		ON CONFLICT (identity) DO UPDATE SET owner = EXCLUDED.owner
	`, string(identity), string(owner))
	if err != nil {
		return fmt.Errorf("set owner: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDelegate(ctx context.Context, identity domain.AccountID, dtype string, delegate domain.AccountID) (*models.DelegateRecord, error) {
	rec := models.DelegateRecord{Identity: identity, Type: dtype, Delegate: delegate}
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT expires_at FROM did_delegates
		WHERE identity = $1 AND delegate_type = $2 AND delegate = $3
	`, string(identity), dtype, string(delegate)).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query delegate: %w", err)
	}
	rec.ExpiresAt = domain.BlockNumber(expiresAt)
	return &rec, nil
}

func (s *PostgresStore) UpsertDelegate(ctx context.Context, rec *models.DelegateRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO did_delegates (identity, delegate_type, delegate, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity, delegate_type, delegate) DO UPDATE SET expires_at = EXCLUDED.expires_at
	`, string(rec.Identity), rec.Type, string(rec.Delegate), int64(rec.ExpiresAt))
	if err != nil {
		return fmt.Errorf("upsert delegate: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDelegates(ctx context.Context, identity domain.AccountID) ([]*models.DelegateRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT delegate_type, delegate, expires_at FROM did_delegates
		WHERE identity = $1 ORDER BY delegate_type, delegate
	`, string(identity))
	if err != nil {
		return nil, fmt.Errorf("list delegates: %w", err)
	}
	defer rows.Close()

	var out []*models.DelegateRecord
	for rows.Next() {
		rec := models.DelegateRecord{Identity: identity}
		var (
			delegate  string
			expiresAt int64
		)
		if err := rows.Scan(&rec.Type, &delegate, &expiresAt); err != nil {
			return nil, fmt.Errorf("scan delegate: %w", err)
		}
		rec.Delegate = domain.AccountID(delegate)
		rec.ExpiresAt = domain.BlockNumber(expiresAt)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindAttribute(ctx context.Context, identity domain.AccountID, name string) (*models.AttributeRecord, error) {
	rec := models.AttributeRecord{Identity: identity, Name: name}
	var validUntil int64
	err := s.db.QueryRowContext(ctx, `
		SELECT value, valid_until FROM did_attributes
		WHERE identity = $1 AND name = $2
	`, string(identity), name).Scan(&rec.Value, &validUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query attribute: %w", err)
	}
	rec.ValidUntil = domain.BlockNumber(validUntil)
	return &rec, nil
}

func (s *PostgresStore) UpsertAttribute(ctx context.Context, rec *models.AttributeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO did_attributes (identity, name, value, valid_until)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity, name) DO UPDATE SET value = EXCLUDED.value, valid_until = EXCLUDED.valid_until
	`, string(rec.Identity), rec.Name, rec.Value, int64(rec.ValidUntil))
	if err != nil {
		return fmt.Errorf("upsert attribute: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAttribute(ctx context.Context, identity domain.AccountID, name string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM did_attributes WHERE identity = $1 AND name = $2
	`, string(identity), name)
	if err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAttributes(ctx context.Context, identity domain.AccountID) ([]*models.AttributeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value, valid_until FROM did_attributes
		WHERE identity = $1 ORDER BY name
	`, string(identity))
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()

	var out []*models.AttributeRecord
	for rows.Next() {
		rec := models.AttributeRecord{Identity: identity}
		var validUntil int64
		if err := rows.Scan(&rec.Name, &rec.Value, &validUntil); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		rec.ValidUntil = domain.BlockNumber(validUntil)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
