package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	certmetrics "credreg/internal/cert/metrics"
	"credreg/internal/cert/models"
	"credreg/internal/events"
	orgmodels "credreg/internal/org/models"
	"credreg/pkg/chainctx"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/sentinel"
)

// CertTypeStore is the persistence port for certificate templates.
type CertTypeStore interface {
	Create(ctx context.Context, ct *models.CertificateType) (domain.CertTypeID, error)
	FindByID(ctx context.Context, id domain.CertTypeID) (*models.CertificateType, error)
	ListByOrg(ctx context.Context, orgID domain.OrgID) ([]*models.CertificateType, error)
}

// CredentialStore is the persistence port for issued credentials.
type CredentialStore interface {
	Create(ctx context.Context, cred *models.Credential) error
	Find(ctx context.Context, key domain.CredentialKey) (*models.Credential, error)
	Execute(ctx context.Context, key domain.CredentialKey, validate func(*models.Credential) error, apply func(*models.Credential)) (*models.Credential, error)
	ListByOrg(ctx context.Context, orgID domain.OrgID) ([]*models.Credential, error)
	Delete(ctx context.Context, key domain.CredentialKey) error
	Discard(ctx context.Context, key domain.CredentialKey) error
}

// ExpiryIndex is the time-ordered secondary index the sweeper scans.
type ExpiryIndex interface {
	Put(ctx context.Context, key domain.CredentialKey, expiresAt domain.Moment) error
	Remove(ctx context.Context, key domain.CredentialKey) error
	DueBefore(ctx context.Context, threshold domain.Moment) ([]domain.CredentialKey, error)
}

// OrgGate is the authorization port into the organization registry.
// EnsureAccess admits the admin and unexpired delegates; EnsureAdmin
// admits the admin alone.
type OrgGate interface {
	EnsureAccess(ctx context.Context, id domain.OrgID, caller domain.AccountID, block domain.BlockNumber) (*orgmodels.Organization, error)
	EnsureAdmin(ctx context.Context, id domain.OrgID, caller domain.AccountID) (*orgmodels.Organization, error)
}

// Service orchestrates certificate templates and the issued credential
// lifecycle.
type Service struct {
	types     CertTypeStore
	creds     CredentialStore
	expiry    ExpiryIndex
	orgs      OrgGate
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *certmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *certmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(types CertTypeStore, creds CredentialStore, expiry ExpiryIndex, orgs OrgGate, opts ...Option) *Service {
	s := &Service{
		types:     types,
		creds:     creds,
		expiry:    expiry,
		orgs:      orgs,
		publisher: events.Discard{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefineCertificate registers a reusable certificate template owned by
// the organization. Admin only; delegates can issue against a template but
// not add one. The organization must not be suspended.
func (s *Service) DefineCertificate(ctx context.Context, orgID domain.OrgID, name string, caller domain.AccountID) (*models.CertificateType, error) {
	name = strings.TrimSpace(name)

	org, err := s.orgs.EnsureAdmin(ctx, orgID, caller)
	if err != nil {
		return nil, err
	}
	if org.Suspended {
		return nil, dErrors.New(dErrors.CodeNotAuthorized, "organization is suspended")
	}

	ct, err := models.NewCertificateType(name, orgID, chainctx.Moment(ctx))
	if err != nil {
		return nil, err
	}

	id, err := s.types.Create(ctx, ct)
	if err != nil {
		return nil, wrapCertErr(err, "certificate type")
	}
	ct.ID = id

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeCertAdded
		e.OrgID = orgID
		e.CertTypeID = id
	})
	if s.metrics != nil {
		s.metrics.TypesDefined.Inc()
	}
	s.logger.Info("certificate type defined", "cert_type_id", id, "org_id", orgID)
	return ct, nil
}

// IssueParams carries the per-issuance fields of a credential.
type IssueParams struct {
	CertTypeID domain.CertTypeID
	Owner      domain.AccountID
	Signature  []byte
	Notes      string
	Attachment domain.ContentRef
	ValidUntil domain.Moment
}

// Issue mints a credential of the given type for the owner account. The
// caller must hold access to the issuing organization; the (type, owner)
// key must never have been used before, even by a since-terminated or
// swept credential.
func (s *Service) Issue(ctx context.Context, p IssueParams, caller domain.AccountID) (*models.Credential, error) {
	ct, err := s.types.FindByID(ctx, p.CertTypeID)
	if err != nil {
		return nil, wrapCertErr(err, "certificate type")
	}
	if _, err := s.orgs.EnsureAccess(ctx, ct.OrgID, caller, chainctx.Block(ctx)); err != nil {
		return nil, err
	}

	cred, err := models.NewCredential(p.CertTypeID, p.Owner, ct.OrgID, p.Signature, p.Notes, p.Attachment, p.ValidUntil, chainctx.Moment(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		return nil, wrapCertErr(err, "credential")
	}
	if cred.ValidUntil != 0 {
		// The record and its expiry index entry must land together: a
		// credential missing from the index would never be swept. Undo the
		// insert without retiring the key so the caller can retry.
		if err := s.expiry.Put(ctx, cred.Key(), cred.ValidUntil); err != nil {
			if undoErr := s.creds.Discard(ctx, cred.Key()); undoErr != nil {
				s.logger.Error("undo credential insert", "key", cred.Key(), "err", undoErr)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "index credential expiry")
		}
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeCertIssued
		e.OrgID = ct.OrgID
		e.CertTypeID = p.CertTypeID
		e.Account = p.Owner
	})
	if s.metrics != nil {
		s.metrics.Issued.Inc()
	}
	s.logger.Info("credential issued", "cert_type_id", p.CertTypeID, "owner", p.Owner, "org_id", ct.OrgID)
	return cred, nil
}

// Revoke terminates a credential from the issuer side. Admin only;
// delegates cannot revoke. The record survives as proof of revocation.
func (s *Service) Revoke(ctx context.Context, key domain.CredentialKey, caller domain.AccountID) error {
	ct, err := s.types.FindByID(ctx, key.CertTypeID)
	if err != nil {
		return wrapCertErr(err, "certificate type")
	}
	if _, err := s.orgs.EnsureAdmin(ctx, ct.OrgID, caller); err != nil {
		return err
	}

	if _, err := s.creds.Execute(ctx, key,
		func(c *models.Credential) error { return c.CanRevoke() },
		func(c *models.Credential) { c.ApplyRevoke() },
	); err != nil {
		return wrapCertErr(err, "credential")
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeCertRevoked
		e.OrgID = ct.OrgID
		e.CertTypeID = key.CertTypeID
		e.Account = key.Owner
	})
	if s.metrics != nil {
		s.metrics.Revoked.Inc()
	}
	s.logger.Info("credential revoked", "cert_type_id", key.CertTypeID, "owner", key.Owner)
	return nil
}

// Destroy terminates a credential from the holder side. Only the owner
// account may destroy its own credential.
func (s *Service) Destroy(ctx context.Context, key domain.CredentialKey, caller domain.AccountID) error {
	if caller != key.Owner {
		return dErrors.New(dErrors.CodeNotAuthorized, "only the credential owner may destroy it")
	}

	cred, err := s.creds.Execute(ctx, key,
		func(c *models.Credential) error { return c.CanDestroy() },
		func(c *models.Credential) { c.ApplyDestroy() },
	)
	if err != nil {
		return wrapCertErr(err, "credential")
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeCertDestroyed
		e.OrgID = cred.IssuedBy
		e.CertTypeID = key.CertTypeID
		e.Account = key.Owner
	})
	if s.metrics != nil {
		s.metrics.Destroyed.Inc()
	}
	s.logger.Info("credential destroyed", "cert_type_id", key.CertTypeID, "owner", key.Owner)
	return nil
}

// Sweep purges credentials whose validity lapsed more than the grace
// window ago. Runs once per block; idempotent, so a crashed pass is
// simply retried by the next block.
func (s *Service) Sweep(ctx context.Context, now domain.Moment) (int, error) {
	start := time.Now()
	threshold := now - models.GracePeriod

	due, err := s.expiry.DueBefore(ctx, threshold)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "scan expiry index")
	}

	swept := 0
	for _, key := range due {
		if err := s.creds.Delete(ctx, key); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return swept, dErrors.Wrap(err, dErrors.CodeInternal, "purge expired credential")
		} else if err == nil {
			swept++
			s.emit(ctx, func(e *events.Event) {
				e.Type = events.TypeCertSwept
				e.CertTypeID = key.CertTypeID
				e.Account = key.Owner
			})
		}
		if err := s.expiry.Remove(ctx, key); err != nil {
			return swept, dErrors.Wrap(err, dErrors.CodeInternal, "unindex expired credential")
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveSweep(start, swept)
	}
	if swept > 0 {
		s.logger.Info("expiry sweep", "swept", swept, "threshold", threshold)
	}
	return swept, nil
}

// GetType is the read-only certificate template lookup.
func (s *Service) GetType(ctx context.Context, id domain.CertTypeID) (*models.CertificateType, error) {
	ct, err := s.types.FindByID(ctx, id)
	if err != nil {
		return nil, wrapCertErr(err, "certificate type")
	}
	return ct, nil
}

// ListTypesByOrg enumerates an organization's certificate templates.
func (s *Service) ListTypesByOrg(ctx context.Context, orgID domain.OrgID) ([]*models.CertificateType, error) {
	return s.types.ListByOrg(ctx, orgID)
}

// GetCredential is the read-only credential lookup.
func (s *Service) GetCredential(ctx context.Context, key domain.CredentialKey) (*models.Credential, error) {
	cred, err := s.creds.Find(ctx, key)
	if err != nil {
		return nil, wrapCertErr(err, "credential")
	}
	return cred, nil
}

// ListIssuedBy enumerates credentials issued by the organization.
func (s *Service) ListIssuedBy(ctx context.Context, orgID domain.OrgID) ([]*models.Credential, error) {
	return s.creds.ListByOrg(ctx, orgID)
}

func (s *Service) emit(ctx context.Context, fill func(*events.Event)) {
	e := events.New("", chainctx.Moment(ctx))
	e.Block = chainctx.Block(ctx)
	fill(&e)
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("publish event", "type", e.Type, "err", err)
	}
}

func wrapCertErr(err error, entity string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", entity)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Newf(dErrors.CodeAlreadyExists, "%s already exists", entity)
	case errors.Is(err, sentinel.ErrRetired):
		return dErrors.Newf(dErrors.CodeAlreadyExists, "%s key was already used", entity)
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "certificate store failure")
}
