//go:build integration

package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"credreg/internal/did/models"
	"credreg/internal/did/store/identity"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
	"credreg/pkg/testutil/containers"
)

type PostgresIdentityStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *identity.PostgresStore
}

func TestPostgresIdentityStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresIdentityStoreSuite))
}

func (s *PostgresIdentityStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = identity.NewPostgres(s.postgres.DB)
}

func (s *PostgresIdentityStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresIdentityStoreSuite) TestOwnerDefaultsToSelf() {
	ctx := context.Background()

	owner, err := s.store.OwnerOf(ctx, "did-alpha")
	s.Require().NoError(err)
	s.Equal(domain.AccountID("did-alpha"), owner)

	s.Require().NoError(s.store.SetOwner(ctx, "did-alpha", "acct-bob"))
	owner, err = s.store.OwnerOf(ctx, "did-alpha")
	s.Require().NoError(err)
	s.Equal(domain.AccountID("acct-bob"), owner)

	// Upsert replaces the previous owner.
	s.Require().NoError(s.store.SetOwner(ctx, "did-alpha", "acct-carol"))
	owner, err = s.store.OwnerOf(ctx, "did-alpha")
	s.Require().NoError(err)
	s.Equal(domain.AccountID("acct-carol"), owner)
}

func (s *PostgresIdentityStoreSuite) TestDelegateRoundTrip() {
	ctx := context.Background()
	rec := &models.DelegateRecord{Identity: "did-alpha", Type: "signer", Delegate: "acct-bob", ExpiresAt: 150}

	_, err := s.store.FindDelegate(ctx, "did-alpha", "signer", "acct-bob")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.UpsertDelegate(ctx, rec))
	found, err := s.store.FindDelegate(ctx, "did-alpha", "signer", "acct-bob")
	s.Require().NoError(err)
	s.Equal(domain.BlockNumber(150), found.ExpiresAt)

	rec.ExpiresAt = 100
	s.Require().NoError(s.store.UpsertDelegate(ctx, rec))
	found, err = s.store.FindDelegate(ctx, "did-alpha", "signer", "acct-bob")
	s.Require().NoError(err)
	s.Equal(domain.BlockNumber(100), found.ExpiresAt)

	delegates, err := s.store.ListDelegates(ctx, "did-alpha")
	s.Require().NoError(err)
	s.Len(delegates, 1)
}

func (s *PostgresIdentityStoreSuite) TestAttributeRoundTrip() {
	ctx := context.Background()
	rec := &models.AttributeRecord{Identity: "did-alpha", Name: "email", Value: []byte("bob@example.org")}

	s.Require().NoError(s.store.UpsertAttribute(ctx, rec))
	found, err := s.store.FindAttribute(ctx, "did-alpha", "email")
	s.Require().NoError(err)
	s.Equal([]byte("bob@example.org"), found.Value)

	s.Require().NoError(s.store.DeleteAttribute(ctx, "did-alpha", "email"))
	s.ErrorIs(s.store.DeleteAttribute(ctx, "did-alpha", "email"), sentinel.ErrNotFound)
	_, err = s.store.FindAttribute(ctx, "did-alpha", "email")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
