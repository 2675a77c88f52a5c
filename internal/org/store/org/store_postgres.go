package org

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"credreg/internal/org/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

// PostgresStore persists organizations in two tables: organizations and
// organization_delegates. IDs come from a sequence so allocation commits or
// rolls back with the row insert.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, org *models.Organization) (domain.OrgID, error) {
	var id uint32
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO organizations (name, admin, suspended, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, org.Name, string(org.Admin), org.Suspended, int64(org.CreatedAt)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert organization: %w", err)
	}
	return domain.OrgID(id), nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.OrgID) (*models.Organization, error) {
	org, err := s.scanOrg(ctx, s.db, id, false)
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *PostgresStore) Execute(
	ctx context.Context,
	id domain.OrgID,
	validate func(*models.Organization) error,
	apply func(*models.Organization),
) (*models.Organization, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	org, err := s.scanOrg(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := validate(org); err != nil {
		return nil, err
	}
	apply(org)

	if _, err := tx.ExecContext(ctx, `
		UPDATE organizations SET name = $2, admin = $3, suspended = $4 WHERE id = $1
	`, uint32(org.ID), org.Name, string(org.Admin), org.Suspended); err != nil {
		return nil, fmt.Errorf("update organization: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM organization_delegates WHERE org_id = $1
	`, uint32(org.ID)); err != nil {
		return nil, fmt.Errorf("clear delegates: %w", err)
	}
	for _, d := range org.Delegates {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO organization_delegates (org_id, account, valid_until)
			VALUES ($1, $2, $3)
		`, uint32(org.ID), string(d.Account), uint64(d.ValidUntil)); err != nil {
			return nil, fmt.Errorf("insert delegate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return org, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) scanOrg(ctx context.Context, q querier, id domain.OrgID, forUpdate bool) (*models.Organization, error) {
	query := `SELECT id, name, admin, suspended, created_at FROM organizations WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		org       models.Organization
		rawID     uint32
		admin     string
		createdAt int64
	)
	err := q.QueryRowContext(ctx, query, uint32(id)).Scan(&rawID, &org.Name, &admin, &org.Suspended, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select organization: %w", err)
	}
	org.ID = domain.OrgID(rawID)
	org.Admin = domain.AccountID(admin)
	org.CreatedAt = domain.Moment(createdAt)

	rows, err := q.QueryContext(ctx, `
		SELECT account, valid_until FROM organization_delegates WHERE org_id = $1
	`, uint32(id))
	if err != nil {
		return nil, fmt.Errorf("select delegates: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			account    string
			validUntil uint64
		)
		if err := rows.Scan(&account, &validUntil); err != nil {
			return nil, fmt.Errorf("scan delegate: %w", err)
		}
		org.Delegates = append(org.Delegates, models.AccessDelegate{
			Account:    domain.AccountID(account),
			ValidUntil: domain.BlockNumber(validUntil),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate delegates: %w", err)
	}
	return &org, nil
}
