package credential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"credreg/internal/cert/models"
	"credreg/pkg/domain"
	"credreg/pkg/platform/sentinel"
)

type CredentialStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestCredentialStoreSuite(t *testing.T) {
	suite.Run(t, new(CredentialStoreSuite))
}

func (s *CredentialStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *CredentialStoreSuite) newCredential(certTypeID domain.CertTypeID, owner domain.AccountID) *models.Credential {
	return &models.Credential{
		CertTypeID: certTypeID,
		Owner:      owner,
		IssuedAt:   1000,
		IssuedBy:   1,
		Signature:  []byte("sig"),
		State:      models.StateActive,
	}
}

func (s *CredentialStoreSuite) TestCreateAndFind() {
	s.Run("creates and finds by key", func() {
		cred := s.newCredential(1, "acct-bob")
		s.Require().NoError(s.store.Create(s.ctx, cred))

		found, err := s.store.Find(s.ctx, cred.Key())
		s.Require().NoError(err)
		s.Equal(models.StateActive, found.State)
	})

	s.Run("duplicate key is rejected", func() {
		err := s.store.Create(s.ctx, s.newCredential(1, "acct-bob"))
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("unknown key is not found", func() {
		_, err := s.store.Find(s.ctx, domain.CredentialKey{CertTypeID: 9, Owner: "acct-none"})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("stored record is isolated from caller mutations", func() {
		cred := s.newCredential(2, "acct-bob")
		s.Require().NoError(s.store.Create(s.ctx, cred))
		cred.State = models.StateRevoked

		found, err := s.store.Find(s.ctx, cred.Key())
		s.Require().NoError(err)
		s.Equal(models.StateActive, found.State)
	})
}

func (s *CredentialStoreSuite) TestExecute() {
	cred := s.newCredential(1, "acct-bob")
	s.Require().NoError(s.store.Create(s.ctx, cred))

	s.Run("validate failure leaves the record untouched", func() {
		_, err := s.store.Execute(s.ctx, cred.Key(),
			func(*models.Credential) error { return sentinel.ErrInvalidState },
			func(c *models.Credential) { c.State = models.StateRevoked },
		)
		s.Require().ErrorIs(err, sentinel.ErrInvalidState)

		found, err := s.store.Find(s.ctx, cred.Key())
		s.Require().NoError(err)
		s.Equal(models.StateActive, found.State)
	})

	s.Run("apply mutates atomically", func() {
		updated, err := s.store.Execute(s.ctx, cred.Key(),
			func(*models.Credential) error { return nil },
			func(c *models.Credential) { c.State = models.StateRevoked },
		)
		s.Require().NoError(err)
		s.Equal(models.StateRevoked, updated.State)
	})
}

func (s *CredentialStoreSuite) TestDeleteRetiresKey() {
	cred := s.newCredential(1, "acct-bob")
	key := cred.Key()
	s.Require().NoError(s.store.Create(s.ctx, cred))

	s.Run("delete removes the record", func() {
		s.Require().NoError(s.store.Delete(s.ctx, key))
		_, err := s.store.Find(s.ctx, key)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("deleting again reports not found", func() {
		s.Require().ErrorIs(s.store.Delete(s.ctx, key), sentinel.ErrNotFound)
	})

	s.Run("the key is spent for good", func() {
		err := s.store.Create(s.ctx, s.newCredential(1, "acct-bob"))
		s.Require().ErrorIs(err, sentinel.ErrRetired)
	})

	s.Run("other owners are unaffected", func() {
		s.NoError(s.store.Create(s.ctx, s.newCredential(1, "acct-alice")))
	})
}

func (s *CredentialStoreSuite) TestDiscardLeavesKeyUsable() {
	cred := s.newCredential(1, "acct-bob")
	key := cred.Key()
	s.Require().NoError(s.store.Create(s.ctx, cred))

	s.Run("discard removes the record", func() {
		s.Require().NoError(s.store.Discard(s.ctx, key))
		_, err := s.store.Find(s.ctx, key)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("discarding an absent key reports not found", func() {
		s.Require().ErrorIs(s.store.Discard(s.ctx, key), sentinel.ErrNotFound)
	})

	s.Run("the key can be issued again", func() {
		s.NoError(s.store.Create(s.ctx, s.newCredential(1, "acct-bob")))
	})
}

func (s *CredentialStoreSuite) TestReissueAfterSweep() {
	store := NewInMemory(WithReissueAfterSweep())
	cred := s.newCredential(1, "acct-bob")
	s.Require().NoError(store.Create(s.ctx, cred))
	s.Require().NoError(store.Delete(s.ctx, cred.Key()))

	err := store.Create(s.ctx, s.newCredential(1, "acct-bob"))
	s.NoError(err)
}

func (s *CredentialStoreSuite) TestListByOrg() {
	a := s.newCredential(2, "acct-bob")
	b := s.newCredential(1, "acct-alice")
	c := s.newCredential(1, "acct-bob")
	other := s.newCredential(3, "acct-bob")
	other.IssuedBy = 2
	for _, cred := range []*models.Credential{a, b, c, other} {
		s.Require().NoError(s.store.Create(s.ctx, cred))
	}

	creds, err := s.store.ListByOrg(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(creds, 3)
	s.Equal(domain.AccountID("acct-alice"), creds[0].Owner)
	s.Equal(domain.AccountID("acct-bob"), creds[1].Owner)
	s.Equal(domain.CertTypeID(2), creds[2].CertTypeID)
}
