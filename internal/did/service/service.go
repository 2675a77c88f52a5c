package service

import (
	"context"
	"errors"
	"log/slog"

	didmetrics "credreg/internal/did/metrics"
	"credreg/internal/did/models"
	"credreg/internal/events"
	"credreg/pkg/chainctx"
	"credreg/pkg/domain"
	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/sentinel"
)

// IdentityStore is the persistence port for identity records.
type IdentityStore interface {
	OwnerOf(ctx context.Context, identity domain.AccountID) (domain.AccountID, error)
	SetOwner(ctx context.Context, identity, owner domain.AccountID) error

	FindDelegate(ctx context.Context, identity domain.AccountID, dtype string, delegate domain.AccountID) (*models.DelegateRecord, error)
	UpsertDelegate(ctx context.Context, rec *models.DelegateRecord) error
	ListDelegates(ctx context.Context, identity domain.AccountID) ([]*models.DelegateRecord, error)

	FindAttribute(ctx context.Context, identity domain.AccountID, name string) (*models.AttributeRecord, error)
	UpsertAttribute(ctx context.Context, rec *models.AttributeRecord) error
	DeleteAttribute(ctx context.Context, identity domain.AccountID, name string) error
	ListAttributes(ctx context.Context, identity domain.AccountID) ([]*models.AttributeRecord, error)
}

// Service orchestrates the decentralized identity registry. Every
// identity is owned by itself until ChangeOwner records otherwise.
type Service struct {
	identities IdentityStore
	publisher  events.Publisher
	logger     *slog.Logger
	metrics    *didmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *didmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(identities IdentityStore, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		publisher:  events.Discard{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OwnerOf resolves the controlling account of an identity.
func (s *Service) OwnerOf(ctx context.Context, identity domain.AccountID) (domain.AccountID, error) {
	owner, err := s.identities.OwnerOf(ctx, identity)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}
	return owner, nil
}

// ChangeOwner transfers control of an identity. Only the current owner
// may transfer.
func (s *Service) ChangeOwner(ctx context.Context, identity, newOwner, caller domain.AccountID) error {
	if newOwner.IsZero() {
		return dErrors.New(dErrors.CodeInvalidInput, "new owner is required")
	}
	if err := s.requireOwner(ctx, identity, caller); err != nil {
		return err
	}
	if err := s.identities.SetOwner(ctx, identity, newOwner); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeOwnerChanged
		e.Identity = identity
		e.Account = newOwner
	})
	if s.metrics != nil {
		s.metrics.OwnersChanged.Inc()
	}
	s.logger.Info("identity owner changed", "identity", identity, "owner", newOwner)
	return nil
}

// AddDelegate grants an account typed authority over the identity for a
// number of blocks. Owner only; the delegate must be a distinct account,
// and an unexpired grant for the same triple cannot be re-added.
// A validity of zero means the grant never expires.
func (s *Service) AddDelegate(ctx context.Context, identity domain.AccountID, dtype string, delegate domain.AccountID, validity domain.BlockNumber, caller domain.AccountID) error {
	if err := s.requireOwner(ctx, identity, caller); err != nil {
		return err
	}
	owner, err := s.identities.OwnerOf(ctx, identity)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}
	if delegate == owner {
		return dErrors.New(dErrors.CodeInvalidInput, "delegate must differ from the identity owner")
	}

	block := chainctx.Block(ctx)
	var expiresAt domain.BlockNumber
	if validity != 0 {
		expiresAt = block + validity
	}
	rec, err := models.NewDelegate(identity, dtype, delegate, expiresAt)
	if err != nil {
		return err
	}

	existing, err := s.identities.FindDelegate(ctx, identity, dtype, delegate)
	switch {
	case err == nil:
		if existing.Active(block) {
			return dErrors.New(dErrors.CodeAlreadyExists, "delegate already granted")
		}
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}

	if err := s.identities.UpsertDelegate(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeDelegateAdded
		e.Identity = identity
		e.Account = delegate
	})
	if s.metrics != nil {
		s.metrics.DelegatesAdded.Inc()
	}
	s.logger.Info("identity delegate added", "identity", identity, "type", dtype, "delegate", delegate, "expires_at", expiresAt)
	return nil
}

// RevokeDelegate ends a grant immediately by pinning its expiry to the
// current block height. Owner only.
func (s *Service) RevokeDelegate(ctx context.Context, identity domain.AccountID, dtype string, delegate domain.AccountID, caller domain.AccountID) error {
	if err := s.requireOwner(ctx, identity, caller); err != nil {
		return err
	}
	block := chainctx.Block(ctx)

	rec, err := s.identities.FindDelegate(ctx, identity, dtype, delegate)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "delegate not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}
	if !rec.Active(block) {
		return dErrors.New(dErrors.CodeInvalidState, "delegate is already expired")
	}

	rec.ExpiresAt = block
	if err := s.identities.UpsertDelegate(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeDelegateRevoked
		e.Identity = identity
		e.Account = delegate
	})
	if s.metrics != nil {
		s.metrics.DelegatesRevoked.Inc()
	}
	s.logger.Info("identity delegate revoked", "identity", identity, "type", dtype, "delegate", delegate)
	return nil
}

// Authorize reports whether the caller may act on the identity for the
// given purpose: the owner always may; otherwise an unexpired delegate of
// the matching type is required.
func (s *Service) Authorize(ctx context.Context, identity, caller domain.AccountID, purpose string) error {
	owner, err := s.identities.OwnerOf(ctx, identity)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}
	if caller == owner {
		return nil
	}
	rec, err := s.identities.FindDelegate(ctx, identity, purpose, caller)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotAuthorized, "caller may not act for the identity")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}
	if !rec.Active(chainctx.Block(ctx)) {
		return dErrors.New(dErrors.CodeNotAuthorized, "delegate grant has expired")
	}
	return nil
}

// AddAttribute writes a named value on the identity, valid for the given
// number of blocks (zero means no expiry). The owner or an unexpired
// attribute delegate may write.
func (s *Service) AddAttribute(ctx context.Context, identity domain.AccountID, name string, value []byte, validity domain.BlockNumber, caller domain.AccountID) error {
	if err := s.Authorize(ctx, identity, caller, models.DelegateTypeAttributes); err != nil {
		return err
	}

	var validUntil domain.BlockNumber
	if validity != 0 {
		validUntil = chainctx.Block(ctx) + validity
	}
	rec, err := models.NewAttribute(identity, name, value, validUntil)
	if err != nil {
		return err
	}
	if err := s.identities.UpsertAttribute(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeAttributeAdded
		e.Identity = identity
		e.Account = caller
	})
	if s.metrics != nil {
		s.metrics.AttributesAdded.Inc()
	}
	s.logger.Info("identity attribute added", "identity", identity, "name", name)
	return nil
}

// RevokeAttribute invalidates an attribute by pinning its validity to the
// current block, keeping the record visible as revoked.
func (s *Service) RevokeAttribute(ctx context.Context, identity domain.AccountID, name string, caller domain.AccountID) error {
	if err := s.Authorize(ctx, identity, caller, models.DelegateTypeAttributes); err != nil {
		return err
	}
	block := chainctx.Block(ctx)

	rec, err := s.identities.FindAttribute(ctx, identity, name)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "attribute not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}
	if !rec.Active(block) {
		return dErrors.New(dErrors.CodeInvalidState, "attribute is already expired")
	}

	rec.ValidUntil = block
	if err := s.identities.UpsertAttribute(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeAttributeRevoked
		e.Identity = identity
	})
	s.logger.Info("identity attribute revoked", "identity", identity, "name", name)
	return nil
}

// DeleteAttribute removes the attribute record entirely. Owner only.
func (s *Service) DeleteAttribute(ctx context.Context, identity domain.AccountID, name string, caller domain.AccountID) error {
	if err := s.requireOwner(ctx, identity, caller); err != nil {
		return err
	}
	if err := s.identities.DeleteAttribute(ctx, identity, name); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "attribute not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}

	s.emit(ctx, func(e *events.Event) {
		e.Type = events.TypeAttributeDeleted
		e.Identity = identity
	})
	s.logger.Info("identity attribute deleted", "identity", identity, "name", name)
	return nil
}

// ListActiveDelegates returns the grants live at the current block.
func (s *Service) ListActiveDelegates(ctx context.Context, identity domain.AccountID) ([]*models.DelegateRecord, error) {
	all, err := s.identities.ListDelegates(ctx, identity)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}
	block := chainctx.Block(ctx)
	out := all[:0]
	for _, rec := range all {
		if rec.Active(block) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListActiveAttributes returns the attributes live at the current block.
func (s *Service) ListActiveAttributes(ctx context.Context, identity domain.AccountID) ([]*models.AttributeRecord, error) {
	all, err := s.identities.ListAttributes(ctx, identity)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}
	block := chainctx.Block(ctx)
	out := all[:0]
	for _, rec := range all {
		if rec.Active(block) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Service) requireOwner(ctx context.Context, identity, caller domain.AccountID) error {
	owner, err := s.identities.OwnerOf(ctx, identity)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity store failure")
	}
	if caller != owner {
		return dErrors.New(dErrors.CodeNotAuthorized, "caller does not own the identity")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, fill func(*events.Event)) {
	e := events.New("", chainctx.Moment(ctx))
	e.Block = chainctx.Block(ctx)
	fill(&e)
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("publish event", "type", e.Type, "err", err)
	}
}
