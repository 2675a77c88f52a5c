package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"credreg/internal/events"
	orgmetrics "credreg/internal/org/metrics"
	"credreg/internal/org/models"
	"credreg/pkg/chainctx"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/sentinel"
)

// OrgStore is the persistence port for organizations.
type OrgStore interface {
	Create(ctx context.Context, org *models.Organization) (domain.OrgID, error)
	FindByID(ctx context.Context, id domain.OrgID) (*models.Organization, error)
	Execute(ctx context.Context, id domain.OrgID, validate func(*models.Organization) error, apply func(*models.Organization)) (*models.Organization, error)
}

// Capability is the elevated override check for suspend/unsuspend. It
// models the external governance/root authority as a predicate, not a
// concrete actor. The default denies everyone.
type Capability func(caller domain.AccountID) bool

// Service orchestrates the organization registry.
type Service struct {
	orgs      OrgStore
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *orgmetrics.Metrics
	root      Capability
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *orgmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithRootCapability(c Capability) Option {
	return func(s *Service) { s.root = c }
}

func New(orgs OrgStore, opts ...Option) *Service {
	s := &Service{
		orgs:      orgs,
		publisher: events.Discard{},
		logger:    slog.Default(),
		root:      func(domain.AccountID) bool { return false },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrganization registers a new organization with the caller-chosen
// admin and an allocator-assigned id.
func (s *Service) CreateOrganization(ctx context.Context, name string, admin domain.AccountID) (*models.Organization, error) {
	name = strings.TrimSpace(name)

	org, err := models.NewOrganization(name, admin, chainctx.Moment(ctx))
	if err != nil {
		return nil, err
	}

	id, err := s.orgs.Create(ctx, org)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create organization")
	}
	org.ID = id

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeOrgAdded
		e.OrgID = id
		e.Account = admin
	})
	if s.metrics != nil {
		s.metrics.OrgsCreated.Inc()
	}
	s.logger.Info("organization created", "org_id", id, "admin", admin)
	return org, nil
}

// Suspend blocks the organization from defining or issuing certificates.
// Only the admin or the root capability may suspend.
func (s *Service) Suspend(ctx context.Context, id domain.OrgID, caller domain.AccountID) error {
	_, err := s.orgs.Execute(ctx, id,
		func(o *models.Organization) error {
			if err := s.requireAdminOrRoot(o, caller); err != nil {
				return err
			}
			return o.CanSuspend()
		},
		func(o *models.Organization) { o.ApplySuspend() },
	)
	if err != nil {
		return wrapOrgErr(err, id)
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeOrgSuspended
		e.OrgID = id
	})
	if s.metrics != nil {
		s.metrics.OrgsSuspended.Inc()
	}
	return nil
}

// Unsuspend lifts a suspension. Same authorization as Suspend.
func (s *Service) Unsuspend(ctx context.Context, id domain.OrgID, caller domain.AccountID) error {
	_, err := s.orgs.Execute(ctx, id,
		func(o *models.Organization) error {
			if err := s.requireAdminOrRoot(o, caller); err != nil {
				return err
			}
			return o.CanUnsuspend()
		},
		func(o *models.Organization) { o.ApplyUnsuspend() },
	)
	if err != nil {
		return wrapOrgErr(err, id)
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeOrgUnsuspended
		e.OrgID = id
	})
	return nil
}

// SetAdmin hands the organization to a new admin account.
func (s *Service) SetAdmin(ctx context.Context, id domain.OrgID, newAdmin domain.AccountID, caller domain.AccountID) error {
	if newAdmin.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "new admin is required")
	}
	_, err := s.orgs.Execute(ctx, id,
		func(o *models.Organization) error {
			if err := s.requireAdminOrRoot(o, caller); err != nil {
				return err
			}
			if o.Admin == newAdmin {
				return dErrors.New(dErrors.CodeAlreadyExists, "account is already the admin")
			}
			return nil
		},
		func(o *models.Organization) { o.Admin = newAdmin },
	)
	if err != nil {
		return wrapOrgErr(err, id)
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeOrgAdminChanged
		e.OrgID = id
		e.Account = newAdmin
	})
	return nil
}

// DelegateAccess grants an account block-height-bounded authority to act
// for the organization. Admin only; the organization must be active.
func (s *Service) DelegateAccess(ctx context.Context, id domain.OrgID, to domain.AccountID, validUntil domain.BlockNumber, caller domain.AccountID) error {
	if to.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "delegate account is required")
	}
	if validUntil <= chainctx.Block(ctx) {
		return dErrors.New(dErrors.CodeInvalidInput, "delegate expiry must be in the future")
	}
	_, err := s.orgs.Execute(ctx, id,
		func(o *models.Organization) error {
			if !o.IsAdmin(caller) {
				return dErrors.New(dErrors.CodeNotAuthorized, "caller is not the organization admin")
			}
			if o.Suspended {
				return dErrors.New(dErrors.CodeInvalidState, "organization is suspended")
			}
			return nil
		},
		func(o *models.Organization) { o.GrantDelegate(to, validUntil) },
	)
	if err != nil {
		return wrapOrgErr(err, id)
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeOrgDelegated
		e.OrgID = id
		e.Account = to
	})
	return nil
}

// Get is the read-only organization lookup.
func (s *Service) Get(ctx context.Context, id domain.OrgID) (*models.Organization, error) {
	org, err := s.orgs.FindByID(ctx, id)
	if err != nil {
		return nil, wrapOrgErr(err, id)
	}
	return org, nil
}

// EnsureAccess loads the organization and verifies the caller may act for
// it at the given block height (admin or unexpired delegate; organization
// must not be suspended). Used by the certificate module for issuance.
func (s *Service) EnsureAccess(ctx context.Context, id domain.OrgID, caller domain.AccountID, block domain.BlockNumber) (*models.Organization, error) {
	org, err := s.orgs.FindByID(ctx, id)
	if err != nil {
		return nil, wrapOrgErr(err, id)
	}
	if org.Suspended {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "organization is suspended")
	}
	if !org.HasAccess(caller, block) {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "caller has no access to the organization")
	}
	return org, nil
}

// EnsureAdmin is the stricter variant: only the admin passes. Used for
// revocation, which delegates cannot perform.
func (s *Service) EnsureAdmin(ctx context.Context, id domain.OrgID, caller domain.AccountID) (*models.Organization, error) {
	org, err := s.orgs.FindByID(ctx, id)
	if err != nil {
		return nil, wrapOrgErr(err, id)
	}
	if !org.IsAdmin(caller) {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "caller is not the organization admin")
	}
	return org, nil
}

func (s *Service) requireAdminOrRoot(o *models.Organization, caller domain.AccountID) error {
	if o.IsAdmin(caller) || s.root(caller) {
		return nil
	}
	return dErrors.New(dErrors.CodeNotAuthorized, "caller is not the organization admin")
}

func (s *Service) emit(ctx context.Context, fill func(*events.Event)) {
	e := events.New("", chainctx.Moment(ctx))
	e.Block = chainctx.Block(ctx)
	fill(&e)
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("publish event", "type", e.Type, "err", err)
	}
}

func wrapOrgErr(err error, id domain.OrgID) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Newf(dErrors.CodeNotFound, "organization %s not found", id)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "organization store failure")
}
