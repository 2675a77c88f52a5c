//go:build integration

package credential_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	certmodels "credreg/internal/cert/models"
	"credreg/internal/cert/store/certtype"
	"credreg/internal/cert/store/credential"
	orgmodels "credreg/internal/org/models"
	orgstore "credreg/internal/org/store/org"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
	"credreg/pkg/testutil/containers"
)

type PostgresCredentialStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *credential.PostgresStore

	orgID      domain.OrgID
	certTypeID domain.CertTypeID
}

func TestPostgresCredentialStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCredentialStoreSuite))
}

func (s *PostgresCredentialStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = credential.NewPostgres(s.postgres.DB)
}

func (s *PostgresCredentialStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))

	// Parent rows the credential foreign keys point at.
	org, err := orgmodels.NewOrganization("Acme University", "acct-admin", 1000)
	s.Require().NoError(err)
	s.orgID, err = orgstore.NewPostgres(s.postgres.DB).Create(ctx, org)
	s.Require().NoError(err)

	ct, err := certmodels.NewCertificateType("Diploma", s.orgID, 1000)
	s.Require().NoError(err)
	s.certTypeID, err = certtype.NewPostgres(s.postgres.DB).Create(ctx, ct)
	s.Require().NoError(err)
}

func (s *PostgresCredentialStoreSuite) newCredential(owner domain.AccountID, validUntil domain.Moment) *certmodels.Credential {
	return &certmodels.Credential{
		CertTypeID: s.certTypeID,
		Owner:      owner,
		IssuedAt:   2000,
		IssuedBy:   s.orgID,
		Signature:  []byte("sig"),
		ValidUntil: validUntil,
		State:      certmodels.StateActive,
	}
}

func (s *PostgresCredentialStoreSuite) TestUniquenessAndRetirement() {
	ctx := context.Background()
	cred := s.newCredential("acct-bob", 0)
	key := cred.Key()

	s.Require().NoError(s.store.Create(ctx, cred))
	s.ErrorIs(s.store.Create(ctx, s.newCredential("acct-bob", 0)), sentinel.ErrAlreadyUsed)

	s.Require().NoError(s.store.Delete(ctx, key))
	s.ErrorIs(s.store.Delete(ctx, key), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Create(ctx, s.newCredential("acct-bob", 0)), sentinel.ErrRetired)

	s.NoError(s.store.Create(ctx, s.newCredential("acct-alice", 0)))
}

func (s *PostgresCredentialStoreSuite) TestExecuteStateTransition() {
	ctx := context.Background()
	cred := s.newCredential("acct-bob", 0)
	s.Require().NoError(s.store.Create(ctx, cred))

	updated, err := s.store.Execute(ctx, cred.Key(),
		func(c *certmodels.Credential) error { return c.CanRevoke() },
		func(c *certmodels.Credential) { c.ApplyRevoke() },
	)
	s.Require().NoError(err)
	s.Equal(certmodels.StateRevoked, updated.State)

	found, err := s.store.Find(ctx, cred.Key())
	s.Require().NoError(err)
	s.Equal(certmodels.StateRevoked, found.State)

	_, err = s.store.Execute(ctx, cred.Key(),
		func(c *certmodels.Credential) error { return c.CanRevoke() },
		func(c *certmodels.Credential) { c.ApplyRevoke() },
	)
	s.Error(err)
}

func (s *PostgresCredentialStoreSuite) TestDueBefore() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newCredential("acct-bob", 100)))
	s.Require().NoError(s.store.Create(ctx, s.newCredential("acct-alice", 200)))
	s.Require().NoError(s.store.Create(ctx, s.newCredential("acct-carol", 0)))

	due, err := s.store.DueBefore(ctx, 100)
	s.Require().NoError(err)
	s.Empty(due)

	due, err = s.store.DueBefore(ctx, 201)
	s.Require().NoError(err)
	s.Require().Len(due, 2)
	s.Equal(domain.AccountID("acct-bob"), due[0].Owner)
	s.Equal(domain.AccountID("acct-alice"), due[1].Owner)
}

func (s *PostgresCredentialStoreSuite) TestDiscardLeavesKeyUsable() {
	ctx := context.Background()
	cred := s.newCredential("acct-bob", 0)
	key := cred.Key()

	s.Require().NoError(s.store.Create(ctx, cred))
	s.Require().NoError(s.store.Discard(ctx, key))
	s.ErrorIs(s.store.Discard(ctx, key), sentinel.ErrNotFound)

	s.NoError(s.store.Create(ctx, s.newCredential("acct-bob", 0)))
}

func (s *PostgresCredentialStoreSuite) TestReissueAfterSweepFlag() {
	ctx := context.Background()
	store := credential.NewPostgres(s.postgres.DB, credential.WithPostgresReissueAfterSweep())

	cred := s.newCredential("acct-bob", 0)
	s.Require().NoError(store.Create(ctx, cred))
	s.Require().NoError(store.Delete(ctx, cred.Key()))
	s.NoError(store.Create(ctx, s.newCredential("acct-bob", 0)))
}
