package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"credreg/internal/events"
	orgstore "credreg/internal/org/store/org"
	"credreg/pkg/chainctx"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
)

const (
	admin    = domain.AccountID("acct-admin")
	delegate = domain.AccountID("acct-delegate")
	stranger = domain.AccountID("acct-stranger")
	rootAcct = domain.AccountID("acct-root")
)

type OrgServiceSuite struct {
	suite.Suite
	store   *orgstore.InMemory
	sink    *events.MemorySink
	service *Service
	ctx     context.Context
}

func TestOrgServiceSuite(t *testing.T) {
	suite.Run(t, new(OrgServiceSuite))
}

func (s *OrgServiceSuite) SetupTest() {
	s.store = orgstore.NewInMemory()
	s.sink = events.NewMemorySink()
	s.service = New(s.store,
		WithPublisher(s.sink),
		WithRootCapability(func(a domain.AccountID) bool { return a == rootAcct }),
	)
	s.ctx = chainctx.WithBlock(context.Background(), 100)
	s.ctx = chainctx.WithMoment(s.ctx, 1_000_000)
}

func (s *OrgServiceSuite) createOrg(name string) domain.OrgID {
	org, err := s.service.CreateOrganization(s.ctx, name, admin)
	s.Require().NoError(err)
	return org.ID
}

func (s *OrgServiceSuite) TestCreateOrganization() {
	s.Run("assigns sequential ids and emits an event", func() {
		org, err := s.service.CreateOrganization(s.ctx, "Acme University", admin)
		s.Require().NoError(err)
		s.Equal(domain.OrgID(1), org.ID)
		s.Equal(admin, org.Admin)
		s.False(org.Suspended)
		s.Len(s.sink.OfType(events.TypeOrgAdded), 1)

		second, err := s.service.CreateOrganization(s.ctx, "Acme University", admin)
		s.Require().NoError(err)
		s.Equal(domain.OrgID(2), second.ID)
	})

	s.Run("rejects a too-short name", func() {
		_, err := s.service.CreateOrganization(s.ctx, "ab", admin)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeTooShort))
	})

	s.Run("rejects a too-long name", func() {
		long := make([]byte, 101)
		for i := range long {
			long[i] = 'x'
		}
		_, err := s.service.CreateOrganization(s.ctx, string(long), admin)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeTooLong))
	})

	s.Run("rejects a missing admin", func() {
		_, err := s.service.CreateOrganization(s.ctx, "Acme University", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *OrgServiceSuite) TestSuspendAndUnsuspend() {
	id := s.createOrg("Acme University")

	s.Run("stranger cannot suspend", func() {
		err := s.service.Suspend(s.ctx, id, stranger)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("admin suspends once", func() {
		s.Require().NoError(s.service.Suspend(s.ctx, id, admin))
		org, err := s.service.Get(s.ctx, id)
		s.Require().NoError(err)
		s.True(org.Suspended)
	})

	s.Run("double suspend is invalid state", func() {
		err := s.service.Suspend(s.ctx, id, admin)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("root capability can unsuspend", func() {
		s.Require().NoError(s.service.Unsuspend(s.ctx, id, rootAcct))
		org, err := s.service.Get(s.ctx, id)
		s.Require().NoError(err)
		s.False(org.Suspended)
	})

	s.Run("unsuspending an active org is invalid state", func() {
		err := s.service.Unsuspend(s.ctx, id, admin)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("unknown org is not found", func() {
		err := s.service.Suspend(s.ctx, domain.OrgID(999), admin)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *OrgServiceSuite) TestSetAdmin() {
	id := s.createOrg("Acme University")

	s.Run("only the admin may hand over", func() {
		err := s.service.SetAdmin(s.ctx, id, stranger, stranger)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("handing to the current admin is rejected", func() {
		err := s.service.SetAdmin(s.ctx, id, admin, admin)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyExists))
	})

	s.Run("transfer succeeds and old admin loses control", func() {
		s.Require().NoError(s.service.SetAdmin(s.ctx, id, delegate, admin))

		org, err := s.service.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(delegate, org.Admin)

		err = s.service.Suspend(s.ctx, id, admin)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})
}

func (s *OrgServiceSuite) TestDelegateAccess() {
	id := s.createOrg("Acme University")

	s.Run("expiry must be beyond the current block", func() {
		err := s.service.DelegateAccess(s.ctx, id, delegate, 100, admin)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("admin grants block-bounded access", func() {
		s.Require().NoError(s.service.DelegateAccess(s.ctx, id, delegate, 111, admin))

		_, err := s.service.EnsureAccess(s.ctx, id, delegate, 110)
		s.NoError(err)
	})

	s.Run("access lapses at the expiry height", func() {
		_, err := s.service.EnsureAccess(s.ctx, id, delegate, 111)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("delegate never passes the admin gate", func() {
		_, err := s.service.EnsureAdmin(s.ctx, id, delegate)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})

	s.Run("suspended org denies even the admin", func() {
		s.Require().NoError(s.service.Suspend(s.ctx, id, admin))
		_, err := s.service.EnsureAccess(s.ctx, id, admin, 100)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAuthorized))
	})
}
