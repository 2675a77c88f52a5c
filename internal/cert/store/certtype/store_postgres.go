package certtype

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"credreg/internal/cert/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

// PostgresStore persists certificate types. A unique (org_id, name) index
// backs the per-organization name invariant.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, ct *models.CertificateType) (domain.CertTypeID, error) {
	var id uint64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO certificate_types (org_id, name, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, uint32(ct.OrgID), ct.Name, int64(ct.CreatedAt)).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, sentinel.ErrAlreadyUsed
		}
		return 0, fmt.Errorf("insert certificate type: %w", err)
	}
	return domain.CertTypeID(id), nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.CertTypeID) (*models.CertificateType, error) {
	var (
		ct        models.CertificateType
		rawID     uint64
		orgID     uint32
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, name, created_at FROM certificate_types WHERE id = $1
	`, uint64(id)).Scan(&rawID, &orgID, &ct.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select certificate type: %w", err)
	}
	ct.ID = domain.CertTypeID(rawID)
	ct.OrgID = domain.OrgID(orgID)
	ct.CreatedAt = domain.Moment(createdAt)
	return &ct, nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID domain.OrgID) ([]*models.CertificateType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, name, created_at FROM certificate_types WHERE org_id = $1 ORDER BY id
	`, uint32(orgID))
	if err != nil {
		return nil, fmt.Errorf("list certificate types: %w", err)
	}
	defer rows.Close()

	var out []*models.CertificateType
	for rows.Next() {
		var (
			ct        models.CertificateType
			rawID     uint64
			rawOrg    uint32
			createdAt int64
		)
		if err := rows.Scan(&rawID, &rawOrg, &ct.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan certificate type: %w", err)
		}
		ct.ID = domain.CertTypeID(rawID)
		ct.OrgID = domain.OrgID(rawOrg)
		ct.CreatedAt = domain.Moment(createdAt)
		out = append(out, &ct)
	}
	return out, rows.Err()
}
