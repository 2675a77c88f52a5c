package credential

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

// PostgresStore persists issued credentials. Retired keys live in their
// own table so permanent uniqueness survives the physical delete. The
// btree index on valid_until doubles as the sweeper's time-ordered index,
// so PostgresStore also implements the expiry index port.
type PostgresStore struct {
	db           *sql.DB
	allowReissue bool
}

type PostgresOption func(*PostgresStore)

// WithPostgresReissueAfterSweep mirrors the in-memory reissue flag.
func WithPostgresReissueAfterSweep() PostgresOption {
	return func(s *PostgresStore) { s.allowReissue = true }
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Create(ctx context.Context, cred *models.Credential) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var spent bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM retired_credential_keys WHERE cert_type_id = $1 AND owner = $2)
	`, uint64(cred.CertTypeID), string(cred.Owner)).Scan(&spent)
	if err != nil {
		return fmt.Errorf("check retired key: %w", err)
	}
	if spent {
		return sentinel.ErrRetired
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials
			(cert_type_id, owner, issued_at, issued_by, signature, notes, attachment, valid_until, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uint64(cred.CertTypeID), string(cred.Owner), int64(cred.IssuedAt), uint32(cred.IssuedBy),
		cred.Signature, cred.Notes, string(cred.Attachment), int64(cred.ValidUntil), string(cred.State))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, key domain.CredentialKey) (*models.Credential, error) {
	return scanCredential(s.db.QueryRowContext(ctx, `
		SELECT cert_type_id, owner, issued_at, issued_by, signature, notes, attachment, valid_until, state
		FROM credentials WHERE cert_type_id = $1 AND owner = $2
	`, uint64(key.CertTypeID), string(key.Owner)))
}

func (s *PostgresStore) Execute(
	ctx context.Context,
	key domain.CredentialKey,
	validate func(*models.Credential) error,
	apply func(*models.Credential),
) (*models.Credential, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	cred, err := scanCredential(tx.QueryRowContext(ctx, `
		SELECT cert_type_id, owner, issued_at, issued_by, signature, notes, attachment, valid_until, state
		FROM credentials WHERE cert_type_id = $1 AND owner = $2
		FOR UPDATE
	`, uint64(key.CertTypeID), string(key.Owner)))
	if err != nil {
		return nil, err
	}
	if err := validate(cred); err != nil {
		return nil, err
	}
	apply(cred)

	if _, err := tx.ExecContext(ctx, `
		UPDATE credentials SET state = $3, valid_until = $4
		WHERE cert_type_id = $1 AND owner = $2
	`, uint64(key.CertTypeID), string(key.Owner), string(cred.State), int64(cred.ValidUntil)); err != nil {
		return nil, fmt.Errorf("update credential: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return cred, nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID domain.OrgID) ([]*models.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cert_type_id, owner, issued_at, issued_by, signature, notes, attachment, valid_until, state
		FROM credentials WHERE issued_by = $1 ORDER BY cert_type_id, owner
	`, uint32(orgID))
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []*models.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, key domain.CredentialKey) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM credentials WHERE cert_type_id = $1 AND owner = $2
	`, uint64(key.CertTypeID), string(key.Owner))
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	if !s.allowReissue {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO retired_credential_keys (cert_type_id, owner) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, uint64(key.CertTypeID), string(key.Owner)); err != nil {
			return fmt.Errorf("retire key: %w", err)
		}
	}
	return tx.Commit()
}

// Discard removes the row without retiring the key. Rollback path for a
// failed issuance, never used by the sweeper.
func (s *PostgresStore) Discard(ctx context.Context, key domain.CredentialKey) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM credentials WHERE cert_type_id = $1 AND owner = $2
	`, uint64(key.CertTypeID), string(key.Owner))
	if err != nil {
		return fmt.Errorf("discard credential: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Put is a no-op for postgres: valid_until is stored on the row and the
// btree index keeps it queryable by expiry.
func (s *PostgresStore) Put(context.Context, domain.CredentialKey, domain.Moment) error { return nil }

// Remove is a no-op: deleting the row removes it from the index.
func (s *PostgresStore) Remove(context.Context, domain.CredentialKey) error { return nil }

// DueBefore scans the valid_until index for rows strictly below the
// threshold. Zero valid_until means no expiry and is never returned.
func (s *PostgresStore) DueBefore(ctx context.Context, threshold domain.Moment) ([]domain.CredentialKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cert_type_id, owner FROM credentials
		WHERE valid_until <> 0 AND valid_until < $1
		ORDER BY valid_until
	`, int64(threshold))
	if err != nil {
		return nil, fmt.Errorf("scan due credentials: %w", err)
	}
	defer rows.Close()

	var out []domain.CredentialKey
	for rows.Next() {
		var (
			certTypeID uint64
			owner      string
		)
		if err := rows.Scan(&certTypeID, &owner); err != nil {
			return nil, fmt.Errorf("scan due key: %w", err)
		}
		out = append(out, domain.CredentialKey{
			CertTypeID: domain.CertTypeID(certTypeID),
			Owner:      domain.AccountID(owner),
		})
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		cred       models.Credential
		certTypeID uint64
		owner      string
		issuedAt   int64
		issuedBy   uint32
		attachment string
		validUntil int64
		state      string
	)
	err := row.Scan(&certTypeID, &owner, &issuedAt, &issuedBy, &cred.Signature, &cred.Notes, &attachment, &validUntil, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan credential: %w", err)
	}
	cred.CertTypeID = domain.CertTypeID(certTypeID)
	cred.Owner = domain.AccountID(owner)
	cred.IssuedAt = domain.Moment(issuedAt)
	cred.IssuedBy = domain.OrgID(issuedBy)
	cred.Attachment = domain.ContentRef(attachment)
	cred.ValidUntil = domain.Moment(validUntil)
	cred.State = models.State(state)
	return &cred, nil
}
